package admin

import (
	"fmt"
	"sort"
	"strings"
)

var fieldLabels = map[string]string{
	"name":       "Customer Names",
	"model":      "Car Models",
	"email":      "Email Addresses",
	"test_drive": "Test Drive Responses",
}

// Augment appends recent corrections for fields to instructions. At most
// maxExamples of the newest corrections are listed per field. Instructions
// are returned unchanged when there are no corrections.
func (k Knowledge) Augment(instructions string, fields []string, maxExamples int) string {
	if k.TotalCount == 0 {
		return instructions
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n---\n**KNOWLEDGE POOL - Learn from Past Corrections**\n")
	fmt.Fprintf(&b, "Based on %d human-verified corrections:\n", k.TotalCount)

	for _, field := range fields {
		b.WriteString(k.fieldContext(field, maxExamples))
	}

	return b.String()
}

func (k Knowledge) fieldContext(field string, maxExamples int) string {
	corrections := append([]Correction(nil), k.GroupedByField[field]...)
	if len(corrections) == 0 {
		return ""
	}

	sort.SliceStable(corrections, func(i, j int) bool {
		return corrections[i].LabeledAt > corrections[j].LabeledAt
	})
	if len(corrections) > maxExamples {
		corrections = corrections[:maxExamples]
	}

	var examples []string
	for _, c := range corrections {
		original := strings.TrimSpace(c.OriginalValue)
		corrected := strings.TrimSpace(c.CorrectedValue)
		if corrected == "" {
			continue
		}

		var parts []string
		if original != "" && original != corrected {
			parts = append(parts, fmt.Sprintf("Incorrectly heard as %q", original))
		}
		parts = append(parts, fmt.Sprintf("Correct value: %q", corrected))
		if c.CorrectionReason != "" {
			parts = append(parts, "("+c.CorrectionReason+")")
		}
		if c.UserUtterance != "" {
			parts = append(parts, fmt.Sprintf("User said: %q", c.UserUtterance))
		}
		examples = append(examples, " - "+strings.Join(parts, ", "))
	}
	if len(examples) == 0 {
		return ""
	}

	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	return fmt.Sprintf("\n\n**Common Mistakes for %s:**\n%s\n\nPay special attention to these terms when extracting %s.",
		label, strings.Join(examples, "\n"), strings.ToLower(label))
}
