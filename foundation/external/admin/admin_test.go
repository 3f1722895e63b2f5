package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/external/admin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func TestFetchAgentConfigCache(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/telephony/prompt/spotlight" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"name":               "Spotlight",
			"systemInstructions": "be nice",
			"siPayloadTemplate":  map[string]any{"id": "{call_id}"},
		})
	}))
	defer srv.Close()

	clk := &clock{t: time.Unix(0, 0)}
	c := admin.New(admin.Settings{
		BaseURL:   srv.URL,
		ConfigTTL: time.Minute,
		Logger:    zap.NewNop().Sugar(),
		Now:       clk.now,
	})

	cfg := c.FetchAgentConfig(context.Background(), "Spotlight")
	if cfg == nil || cfg.SystemInstructions != "be nice" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, ok := cfg.SIPayloadTemplate.(map[string]any); !ok {
		t.Fatalf("template should decode as an object, got %T", cfg.SIPayloadTemplate)
	}

	c.FetchAgentConfig(context.Background(), "spotlight")
	if hits.Load() != 1 {
		t.Fatalf("got %d fetches, want 1 within the ttl", hits.Load())
	}

	clk.t = clk.t.Add(2 * time.Minute)
	c.FetchAgentConfig(context.Background(), "spotlight")
	if hits.Load() != 2 {
		t.Fatalf("got %d fetches, want 2 after the ttl", hits.Load())
	}

	if c.FetchAgentConfig(context.Background(), "missing") != nil {
		t.Fatal("unknown agent should return nil")
	}
}

func TestPushCallRecordFollowsRedirect(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/calls/ingest":
			http.Redirect(w, r, "/api/calls/ingest/", http.StatusTemporaryRedirect)
		case "/api/calls/ingest/":
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]string{"callSessionId": "cs-1"})
		}
	}))
	defer srv.Close()

	c := admin.New(admin.Settings{BaseURL: srv.URL, Push: true, Logger: zap.NewNop().Sugar()})

	if err := c.PushCallRecord(context.Background(), map[string]any{"id": "bot_1"}, "1"); err != nil {
		t.Fatal(err)
	}
	if got["id"] != "bot_1" {
		t.Fatalf("payload not delivered after redirect: %v", got)
	}

	off := admin.New(admin.Settings{BaseURL: srv.URL, Logger: zap.NewNop().Sugar()})
	if err := off.PushCallRecord(context.Background(), nil, "1"); !errors.Is(err, admin.ErrDisabled) {
		t.Fatalf("got %v, want ErrDisabled", err)
	}
}

func TestPushCallRecordUnreadableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := admin.New(admin.Settings{BaseURL: srv.URL, Push: true, Logger: zap.New(core).Sugar()})

	if err := c.PushCallRecord(context.Background(), map[string]any{"id": "bot_1"}, "1"); err != nil {
		t.Fatalf("an accepted push should succeed, got %v", err)
	}

	entries := logs.FilterMessage("admin: PushCallRecord: decode").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected one debug entry for the unreadable reply, got %v", logs.All())
	}
}

func TestDeliverWebhook(t *testing.T) {
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path == "/fail" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := admin.New(admin.Settings{BaseURL: srv.URL, Logger: zap.NewNop().Sugar()})

	if err := c.DeliverWebhook(context.Background(), "SI", srv.URL+"/ok", "Bearer x", map[string]any{}, "1"); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer x" {
		t.Fatalf("auth header %q", auth)
	}

	err := c.DeliverWebhook(context.Background(), "Waybeo", srv.URL+"/fail", "", map[string]any{}, "1")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("got %v, want a 401 error", err)
	}
}

func TestKnowledgeAugment(t *testing.T) {
	k := admin.Knowledge{
		TotalCount: 2,
		GroupedByField: map[string][]admin.Correction{
			"name": {
				{OriginalValue: "Rohith", CorrectedValue: "Rohit", LabeledAt: "2025-01-01"},
				{OriginalValue: "Sumon", CorrectedValue: "Suman", LabeledAt: "2025-02-01"},
			},
		},
	}

	out := k.Augment("base", []string{"name", "model"}, 1)
	if !strings.HasPrefix(out, "base") || !strings.Contains(out, `"Suman"`) {
		t.Fatalf("unexpected augmentation %q", out)
	}
	if strings.Contains(out, "Rohit") {
		t.Fatal("only the newest correction should be listed")
	}

	if got := (admin.Knowledge{}).Augment("base", []string{"name"}, 3); got != "base" {
		t.Fatalf("empty knowledge should not change instructions, got %q", got)
	}
}
