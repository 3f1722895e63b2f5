package record_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/superfeelapi/goLiveBridge/business/record"
	"github.com/superfeelapi/goLiveBridge/foundation/config"
	"github.com/superfeelapi/goLiveBridge/foundation/external/admin"
	"github.com/superfeelapi/goLiveBridge/foundation/external/google"
	"github.com/superfeelapi/goLiveBridge/foundation/state"
	"github.com/superfeelapi/goLiveBridge/foundation/storage"
	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 1, 31, 13, 36, 41, 0, time.UTC)

func conversation() []transcript.Entry {
	return []transcript.Entry{
		{Speaker: transcript.Agent, Text: "Namaste, aapka naam kya hai?", Timestamp: t0},
		{Speaker: transcript.User, Text: "mera naam suman hai", Timestamp: t0.Add(5 * time.Second)},
		{Speaker: transcript.Agent, Text: "Test drive chahiye?", Timestamp: t0.Add(9 * time.Second)},
		{Speaker: transcript.User, Text: "haan", Timestamp: t0.Add(14 * time.Second)},
		{Speaker: transcript.Agent, Text: "Aap kaunsa model dekh rahe hain?", Timestamp: t0.Add(18 * time.Second)},
		{Speaker: transcript.User, Text: "EV9 chahiye", Timestamp: t0.Add(21 * time.Second)},
	}
}

func TestExtractResponses(t *testing.T) {
	items := record.ExtractResponses(conversation(), nil)
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}

	got := map[string]record.ResponseItem{}
	for _, it := range items {
		got[it.KeyValue] = it
	}

	if got["name"].KeyResponse != "Suman" || got["name"].Remarks != "verified" {
		t.Fatalf("unexpected name item %+v", got["name"])
	}
	if d := got["name"].AttemptsDetails; len(d) != 1 || d[0].StartTime != "2026-01-31 13:36:46" || d[0].EndTime != "2026-01-31 13:36:50" {
		t.Fatalf("unexpected attempt details %+v", d)
	}
	if got["model"].KeyResponse != "EV9" {
		t.Fatalf("unexpected model %q", got["model"].KeyResponse)
	}
	if got["test_drive"].KeyResponse != "Haan" {
		t.Fatalf("unexpected test drive %q", got["test_drive"].KeyResponse)
	}
	if got["email"].KeyResponse != " " || got["email"].Remarks != "not_captured" || got["email"].Attempts != 0 {
		t.Fatalf("unexpected email item %+v", got["email"])
	}

	if s := record.CompletionStatus(items); s != record.Partial {
		t.Fatalf("status %q, want partial", s)
	}
}

func TestModelFieldsWin(t *testing.T) {
	email := "suman@example.com"
	name := "Suman Rao"
	items := record.ExtractResponses(conversation(), &google.Fields{Email: &email, Name: &name})

	ex := record.Extracted(items)
	if ex["email"] != email || ex["name"] != name {
		t.Fatalf("unexpected extracted map %v", ex)
	}
	if ex["phone"] != nil {
		t.Fatalf("phone should be nil, got %v", ex["phone"])
	}
}

func TestCompletionStatus(t *testing.T) {
	mk := func(captured int) []record.ResponseItem {
		items := make([]record.ResponseItem, 5)
		for i := range items {
			items[i] = record.ResponseItem{KeyResponse: " ", Remarks: "not_captured"}
			if i < captured {
				items[i] = record.ResponseItem{KeyResponse: "x", Remarks: "verified"}
			}
		}
		return items
	}

	tests := []struct {
		captured int
		want     string
	}{
		{0, record.Incomplete},
		{1, record.Partial},
		{3, record.Partial},
		{4, record.Complete},
		{5, record.Complete},
	}
	for _, tt := range tests {
		if got := record.CompletionStatus(mk(tt.captured)); got != tt.want {
			t.Errorf("captured %d: got %q, want %q", tt.captured, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	ctx := map[string]any{
		"call_id":      "u-1",
		"duration_sec": 79,
		"extracted":    map[string]any{"name": "Suman", "email": nil},
	}

	template := map[string]any{
		"remarks":       "call {call_id} took {duration_sec}s",
		"duration":      "{duration_sec}",
		"id":            "bot_{call_id}",
		"has_email":     "{extracted.email ? 'yes' : 'no'}",
		"name":          "{ extracted.name }",
		"missing":       "{nope}",
		"response_data": []any{map[string]any{"remarks": "ok", "key_label": "{extracted.name}"}},
	}

	r := record.Render(template, ctx)

	b, err := json.Marshal(r.Payload)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"bot_u-1","duration":79,"response_data":[{"key_label":"Suman","remarks":"ok"}],"has_email":"no","missing":"","name":"Suman","remarks":"call u-1 took 79s"}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}

	if strings.Join(r.Missing, ",") != "extracted.email,nope" {
		t.Fatalf("unexpected missing %v", r.Missing)
	}
}

type fakeAdmin struct {
	mu       sync.Mutex
	cfg      *admin.AgentConfig
	pushed   []any
	pushErr  error
	webhooks map[string]any
}

func (f *fakeAdmin) FetchAgentConfig(context.Context, string) *admin.AgentConfig {
	return f.cfg
}

func (f *fakeAdmin) PushCallRecord(_ context.Context, payload any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, payload)
	return f.pushErr
}

func (f *fakeAdmin) DeliverWebhook(_ context.Context, name, _, _ string, payload any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.webhooks == nil {
		f.webhooks = map[string]any{}
	}
	f.webhooks[name] = payload
	return nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, []transcript.Entry, string) (google.Fields, error) {
	return google.Fields{}, errors.New("quota exceeded")
}

func TestFinalize(t *testing.T) {
	dir := t.TempDir()
	adm := &fakeAdmin{cfg: &admin.AgentConfig{
		Name:              "Kia Spotlight",
		SIEndpointURL:     "https://si.example.com/hook",
		WaybeoEndpointURL: "https://waybeo.example.com/hook",
		SIPayloadTemplate: map[string]any{
			"customer_name": "{customer_name}",
			"id":            "bot_{call_id}",
			"status":        "{completion_status}",
		},
	}}

	f := record.New(record.Settings{
		Store:     storage.New(dir, true),
		Admin:     adm,
		Extractor: failingExtractor{},
		Logger:    zap.NewNop().Sugar(),
	})

	call := record.Call{
		UCID:           "u-42",
		Agent:          config.Agent{Slug: "spotlight", Dir: "kia2", CustomerName: "Kia"},
		CustomerNumber: "9876543210",
		StoreCode:      "UK401",
		Start:          t0,
		End:            t0.Add(79 * time.Second),
		Entries:        conversation(),
	}

	if err := f.Finalize(context.Background(), call); err != nil {
		t.Fatal(err)
	}

	if len(adm.pushed) != 1 {
		t.Fatalf("pushed %d records, want 1", len(adm.pushed))
	}
	si, ok := adm.pushed[0].(record.SIPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", adm.pushed[0])
	}
	if si.ID != "bot_u-42" || si.CustomerName != "Kia" || si.Duration != 79 || si.CustomerNumber != int64(9876543210) {
		t.Fatalf("unexpected si payload %+v", si)
	}
	if si.StartTime != "2026-01-31 13:36:41" || si.CallVendor != "Waybeo" {
		t.Fatalf("unexpected si payload %+v", si)
	}

	rendered, err := json.Marshal(adm.webhooks["si"])
	if err != nil {
		t.Fatal(err)
	}
	if string(rendered) != `{"id":"bot_u-42","customer_name":"Kia","status":"partial"}` {
		t.Fatalf("unexpected rendered si %s", rendered)
	}

	wb, ok := adm.webhooks["waybeo"].(record.WaybeoPayload)
	if !ok || wb.UCID != "u-42" || wb.CallDuration != 79 || wb.AgentID != "spotlight" {
		t.Fatalf("unexpected waybeo payload %+v", adm.webhooks["waybeo"])
	}

	for _, kind := range []string{"transcripts", "si", "waybeo"} {
		files, _ := filepath.Glob(filepath.Join(dir, "kia2", kind, "call_u-42_*.json"))
		if len(files) != 1 {
			t.Fatalf("expected one %s file, got %v", kind, files)
		}
	}
}

func TestFinalizeSkipsUnknownCall(t *testing.T) {
	dir := t.TempDir()
	adm := &fakeAdmin{}
	f := record.New(record.Settings{
		Store:  storage.New(dir, true),
		Admin:  adm,
		Logger: zap.NewNop().Sugar(),
	})

	if err := f.Finalize(context.Background(), record.Call{UCID: "UNKNOWN", Entries: conversation()}); err != nil {
		t.Fatal(err)
	}
	if err := f.Finalize(context.Background(), record.Call{UCID: "u-1"}); err != nil {
		t.Fatal(err)
	}

	if len(adm.pushed) != 0 {
		t.Fatal("nothing should be pushed")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatal("nothing should be written")
	}
}

func TestFinalizeSkipsFailedAdminUntilBackoff(t *testing.T) {
	now := t0
	st := state.NewState()
	st.Backoff = time.Minute
	st.Now = func() time.Time { return now }

	adm := &fakeAdmin{pushErr: errors.New("admin: ingest: status 502")}
	f := record.New(record.Settings{
		Store:     storage.New(t.TempDir(), true),
		Admin:     adm,
		Extractor: failingExtractor{},
		State:     st,
		Logger:    zap.NewNop().Sugar(),
	})

	call := record.Call{
		UCID:    "u-7",
		Agent:   config.Agent{Slug: "spotlight", Dir: "kia2"},
		Start:   t0,
		End:     t0.Add(30 * time.Second),
		Entries: conversation(),
	}

	for range 2 {
		if err := f.Finalize(context.Background(), call); err != nil {
			t.Fatal(err)
		}
	}
	if len(adm.pushed) != 1 {
		t.Fatalf("got %d push attempts, want 1 while admin is switched off", len(adm.pushed))
	}
	if st.Get(state.Admin) {
		t.Fatal("admin should be switched off after a failed push")
	}

	now = now.Add(time.Minute)
	adm.pushErr = nil

	if err := f.Finalize(context.Background(), call); err != nil {
		t.Fatal(err)
	}
	if len(adm.pushed) != 2 {
		t.Fatalf("got %d push attempts, want 2 after the backoff", len(adm.pushed))
	}
	if !st.Get(state.Admin) {
		t.Fatal("admin should be back on after a successful push")
	}
}
