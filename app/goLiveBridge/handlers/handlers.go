// Package handlers serves the telephony WebSocket endpoint.
package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/superfeelapi/goLiveBridge/business/bridge"
	"github.com/superfeelapi/goLiveBridge/foundation/config"
	"go.uber.org/zap"
)

// Bridge upgrades telephony connections and runs one session per call.
type Bridge struct {
	Path         string
	DefaultAgent string
	Agents       config.Config
	Session      bridge.Settings
	Logger       *zap.SugaredLogger
}

func (h Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warnw("handlers: upgrade", "ERROR", err, "remote", r.RemoteAddr)
		return
	}

	if r.URL.Path != h.Path {
		h.Logger.Warnw("handlers: rejected", "reason", "invalid path", "path", r.URL.Path)
		bridge.ClosePolicy(conn, "Invalid path")
		return
	}

	slug := r.URL.Query().Get("agent")
	if slug == "" {
		slug = h.DefaultAgent
	}

	agent, err := h.Agents.GetAgent(slug)
	if err != nil {
		h.Logger.Warnw("handlers: rejected", "reason", "unknown agent", "ERROR", err)
		bridge.ClosePolicy(conn, "Unknown agent")
		return
	}

	s := h.Session
	s.Agent = agent
	s.Client = conn

	h.Logger.Infow("handlers: connection accepted", "agent", agent.Slug, "remote", r.RemoteAddr)

	if err := bridge.Run(r.Context(), s); err != nil {
		h.Logger.Infow("handlers: session ended", "agent", agent.Slug, "reason", err.Error())
		return
	}
	h.Logger.Infow("handlers: session ended", "agent", agent.Slug)
}
