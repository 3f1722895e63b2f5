package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/superfeelapi/goLiveBridge/foundation/audio"
	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"go.uber.org/zap"
)

// fakeModel upgrades one connection and hands it to fn.
func fakeModel(t *testing.T, fn func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		fn(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newLink(url string, setupTimeout time.Duration) *gemini.Link {
	cfg := gemini.DefaultConfig()
	cfg.URL = url
	cfg.Model = gemini.ModelURI("proj", "us-central1", "model")
	cfg.Voice = "Aoede"
	cfg.SystemInstructions = "be brief"
	cfg.SetupTimeout = setupTimeout
	return gemini.New(cfg, zap.NewNop().Sugar())
}

func TestConnectAndExchange(t *testing.T) {
	got := make(chan map[string]any, 4)

	url := fakeModel(t, func(conn *websocket.Conn) {
		var setup map[string]any
		if err := conn.ReadJSON(&setup); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		got <- setup

		conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))

		var in map[string]any
		if err := conn.ReadJSON(&in); err != nil {
			t.Errorf("read audio: %v", err)
			return
		}
		got <- in

		msg := map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{
					"parts": []any{map[string]any{"inlineData": map[string]any{
						"mimeType": "audio/pcm;rate=24000",
						"data":     audio.EncodeBase64([]int16{1, 2, 3}),
					}}},
				},
				"outputTranscription": map[string]any{"text": "Namaste"},
				"turnComplete":        true,
			},
		}
		conn.WriteJSON(msg)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.ReadMessage()
	})

	link := newLink(url, 2*time.Second)
	defer link.Close()

	if err := link.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	setup := (<-got)["setup"].(map[string]any)
	if setup["model"] != "projects/proj/locations/us-central1/publishers/google/models/model" {
		t.Fatalf("model %v", setup["model"])
	}
	tools := setup["tools"].([]any)
	decls := tools[0].(map[string]any)["function_declarations"].([]any)
	if len(decls) != 2 {
		t.Fatalf("got %d function declarations, want 2", len(decls))
	}
	if _, ok := setup["input_audio_transcription"]; !ok {
		t.Fatal("input transcription should be enabled")
	}

	if err := link.SendAudio("AAAA"); err != nil {
		t.Fatalf("send audio: %v", err)
	}
	in := (<-got)["realtime_input"].(map[string]any)
	chunk := in["media_chunks"].([]any)[0].(map[string]any)
	if chunk["mime_type"] != "audio/pcm" || chunk["data"] != "AAAA" {
		t.Fatalf("unexpected media chunk %v", chunk)
	}

	var kinds []string
	for m := range link.Messages() {
		switch m := m.(type) {
		case gemini.Audio:
			if len(m.Samples) != 3 {
				t.Fatalf("got %d samples, want 3", len(m.Samples))
			}
			kinds = append(kinds, "audio")
		case gemini.Transcription:
			kinds = append(kinds, "transcription")
		case gemini.TurnComplete:
			kinds = append(kinds, "turnComplete")
		}
	}

	want := "transcription,audio,turnComplete"
	if strings.Join(kinds, ",") != want {
		t.Fatalf("got %v, want %s", kinds, want)
	}
	if r := link.CloseReason(); !strings.Contains(r, "1000") {
		t.Fatalf("close reason %q should carry the close code", r)
	}
}

func TestConnectSetupTimeoutIsSoft(t *testing.T) {
	got := make(chan json.RawMessage, 2)

	url := fakeModel(t, func(conn *websocket.Conn) {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got <- raw
		}
	})

	link := newLink(url, 50*time.Millisecond)
	defer link.Close()

	err := link.Connect(context.Background())
	if !errors.Is(err, gemini.ErrSetupTimeout) {
		t.Fatalf("got %v, want ErrSetupTimeout", err)
	}
	<-got

	if err := link.InjectTextTurn("Hello", true); err != nil {
		t.Fatalf("link should stay usable after a setup timeout: %v", err)
	}

	var m map[string]any
	json.Unmarshal(<-got, &m)
	cc := m["client_content"].(map[string]any)
	if cc["turn_complete"] != true {
		t.Fatalf("turn_complete %v", cc["turn_complete"])
	}
}

func TestSendWithoutConnect(t *testing.T) {
	link := newLink("ws://127.0.0.1:1", time.Second)

	if err := link.SendAudio("AAAA"); !errors.Is(err, gemini.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}

	link.Close()
	if err := link.SendFunctionResponse("1", gemini.EndCall, nil); !errors.Is(err, gemini.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected after close", err)
	}
}
