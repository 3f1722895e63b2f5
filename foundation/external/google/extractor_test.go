package google_test

import (
	"testing"

	"github.com/superfeelapi/goLiveBridge/foundation/external/google"
)

func TestParseFields(t *testing.T) {
	reply := "```json\n" + `{"name":" Rohit ","model":"SELTOS","email":"null","test_drive":"yes","phone":null,
		"confidence":{"name":0.9},"extraction_notes":"ok"}` + "\n```"

	f, err := google.ParseFields(reply)
	if err != nil {
		t.Fatal(err)
	}

	if f.Name == nil || *f.Name != "Rohit" {
		t.Fatalf("name %v", f.Name)
	}
	if f.Email != nil {
		t.Fatalf("\"null\" string should be treated as missing, got %q", *f.Email)
	}
	if f.Phone != nil || f.Location != nil {
		t.Fatal("missing fields should stay nil")
	}
	if f.Confidence["name"] != 0.9 {
		t.Fatalf("confidence %v", f.Confidence)
	}
}

func TestParseFieldsInvalid(t *testing.T) {
	if _, err := google.ParseFields("not json"); err == nil {
		t.Fatal("expected error")
	}
}
