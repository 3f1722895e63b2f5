package record

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)
	conditionalRe = regexp.MustCompile(`^\s*([a-zA-Z0-9_.]+)\s*\?\s*(?:'([^']*)'|"([^"]*)")\s*:\s*(?:'([^']*)'|"([^"]*)")\s*$`)
)

// SI payload key order enforced on rendered templates.
var (
	siKeyOrder = []string{
		"id", "customer_name", "call_ref_id", "call_vendor", "recording_url", "start_time", "end_time",
		"duration", "provider", "call_direction", "store_code", "customer_number", "language",
		"dealer_routing", "dropoff", "completion_status", "response_data",
	}
	responseKeyOrder = []string{
		"key_label", "key_value", "key_response", "attempts", "attempts_details", "remarks",
	}
)

// Rendered is a rendered template and the placeholders that had no value.
type Rendered struct {
	Payload any
	Missing []string
}

// Render fills {path.to.value} placeholders in template from ctx. A string
// that is exactly one placeholder takes the value with its type. The form
// {path ? 'yes' : 'no'} picks a literal by the truth of path. Objects come
// back in SI key order.
func Render(template any, ctx map[string]any) Rendered {
	var missing []string
	out := renderValue(template, ctx, &missing)

	sort.Strings(missing)
	missing = dedupe(missing)

	return Rendered{
		Payload: reorder(out),
		Missing: missing,
	}
}

// =====================================================================================================================

func renderValue(v any, ctx map[string]any, missing *[]string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = renderValue(child, ctx, missing)
		}
		return out

	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = renderValue(child, ctx, missing)
		}
		return out

	case string:
		return renderString(t, ctx, missing)
	}
	return v
}

func renderString(s string, ctx map[string]any, missing *[]string) any {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	if len(matches) == 1 && strings.TrimSpace(s) == s[matches[0][0]:matches[0][1]] {
		expr := strings.TrimSpace(s[matches[0][2]:matches[0][3]])
		if v, ok := evalConditional(expr, ctx, missing); ok {
			return v
		}

		v := lookupPath(ctx, expr)
		if v == nil {
			*missing = append(*missing, expr)
			return ""
		}
		return v
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		expr := strings.TrimSpace(m[1 : len(m)-1])
		if v, ok := evalConditional(expr, ctx, missing); ok {
			return v
		}

		v := lookupPath(ctx, expr)
		if v == nil {
			*missing = append(*missing, expr)
			return ""
		}
		return stringify(v)
	})
}

func evalConditional(expr string, ctx map[string]any, missing *[]string) (string, bool) {
	m := conditionalRe.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}

	yes := m[2] + m[3]
	no := m[4] + m[5]

	v := lookupPath(ctx, m[1])
	if v == nil {
		*missing = append(*missing, m[1])
	}
	if truthy(v) {
		return yes, true
	}
	return no, true
}

func lookupPath(ctx map[string]any, path string) any {
	var cur any = ctx
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil
			}
			cur = v
		case Object:
			v, ok := m.Get(part)
			if !ok {
				return nil
			}
			cur = v
		default:
			return nil
		}
	}
	return cur
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any, Object:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func reorder(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}

	if items, ok := m["response_data"].([]any); ok {
		ordered := make([]any, len(items))
		for i, it := range items {
			if im, ok := it.(map[string]any); ok {
				ordered[i] = Ordered(im, responseKeyOrder)
				continue
			}
			ordered[i] = it
		}
		m["response_data"] = ordered
	}

	return Ordered(m, siKeyOrder)
}

func dedupe(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
