package telephony_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/superfeelapi/goLiveBridge/foundation/external/telephony"
)

func TestSend(t *testing.T) {
	var got map[string]string
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := telephony.New(srv.URL, "secret")
	if err := c.Send(context.Background(), telephony.HangupCommand, "ucid-1"); err != nil {
		t.Fatal(err)
	}

	if got["command"] != "hangup_call" || got["callId"] != "ucid-1" {
		t.Fatalf("unexpected body %v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
}

func TestSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := telephony.New(srv.URL, "")
	err := c.Send(context.Background(), telephony.TransferCommand, "ucid-1")
	if !errors.Is(err, telephony.ErrControlFailed) {
		t.Fatalf("got %v, want ErrControlFailed", err)
	}

	if err := telephony.New("", "").Send(context.Background(), telephony.HangupCommand, "x"); !errors.Is(err, telephony.ErrControlFailed) {
		t.Fatalf("missing endpoint: got %v, want ErrControlFailed", err)
	}
}

func TestFallbackFrame(t *testing.T) {
	b, err := telephony.FallbackFrame(telephony.TransferCommand, "ucid-9")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"event":"transfer_call","ucid":"ucid-9"}` {
		t.Fatalf("unexpected frame %s", b)
	}
}
