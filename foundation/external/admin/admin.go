// Package admin is the client for the admin UI: agent configuration, the
// knowledge pool, call ingestion and outbound webhooks.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	apiTimeout   = 10 * time.Second
	fetchTimeout = 5 * time.Second
	maxRedirects = 3
	userAgent    = "goLiveBridge/1.0"
)

// ErrDisabled is returned by PushCallRecord when pushing is switched off.
var ErrDisabled = errors.New("admin: push disabled")

type cached[T any] struct {
	value   T
	fetched time.Time
}

// Client talks to the admin UI. Agent configs and knowledge are cached per
// slug for the TTLs given at construction.
type Client struct {
	baseURL      string
	push         bool
	configTTL    time.Duration
	knowledgeTTL time.Duration
	logger       *zap.SugaredLogger
	http         *http.Client
	now          func() time.Time

	mu        sync.Mutex
	configs   map[string]cached[*AgentConfig]
	knowledge map[string]cached[Knowledge]
}

type Settings struct {
	BaseURL      string
	Push         bool
	ConfigTTL    time.Duration
	KnowledgeTTL time.Duration
	Logger       *zap.SugaredLogger
	Now          func() time.Time
}

func New(s Settings) *Client {
	now := s.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:      strings.TrimRight(s.BaseURL, "/"),
		push:         s.Push,
		configTTL:    s.ConfigTTL,
		knowledgeTTL: s.KnowledgeTTL,
		logger:       s.Logger,
		now:          now,
		http: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		configs:   make(map[string]cached[*AgentConfig]),
		knowledge: make(map[string]cached[Knowledge]),
	}
}

// FetchAgentConfig returns the admin config for slug, or nil when the admin
// UI has none or cannot be reached.
func (c *Client) FetchAgentConfig(ctx context.Context, slug string) *AgentConfig {
	slug = strings.ToLower(slug)

	c.mu.Lock()
	if e, ok := c.configs[slug]; ok && c.now().Sub(e.fetched) < c.configTTL {
		c.mu.Unlock()
		return e.value
	}
	c.mu.Unlock()

	var cfg AgentConfig
	if err := c.getJSON(ctx, "/api/telephony/prompt/"+url.PathEscape(slug), nil, &cfg); err != nil {
		c.logger.Warnw("admin: FetchAgentConfig", "agent", slug, "ERROR", err)
		return nil
	}

	c.mu.Lock()
	c.configs[slug] = cached[*AgentConfig]{value: &cfg, fetched: c.now()}
	c.mu.Unlock()

	return &cfg
}

// FetchKnowledge returns recent human corrections for slug. Failures yield
// an empty result and are not cached.
func (c *Client) FetchKnowledge(ctx context.Context, slug string) Knowledge {
	c.mu.Lock()
	if e, ok := c.knowledge[slug]; ok && c.now().Sub(e.fetched) < c.knowledgeTTL {
		c.mu.Unlock()
		return e.value
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("voiceAgentSlug", slug)
	q.Set("onlyCorrections", "true")
	q.Set("limit", "100")

	var k Knowledge
	if err := c.getJSON(ctx, "/api/knowledge-pool", q, &k); err != nil {
		c.logger.Warnw("admin: FetchKnowledge", "agent", slug, "ERROR", err)
		return Knowledge{}
	}

	c.mu.Lock()
	c.knowledge[slug] = cached[Knowledge]{value: k, fetched: c.now()}
	c.mu.Unlock()

	return k
}

// PushCallRecord posts the call record to the ingest endpoint, following up
// to three redirects.
func (c *Client) PushCallRecord(ctx context.Context, payload any, callID string) error {
	if !c.push {
		return ErrDisabled
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	target := c.baseURL + "/api/calls/ingest"

	for attempt := 0; attempt <= maxRedirects; attempt++ {
		resp, err := c.post(ctx, target, b, "")
		if err != nil {
			return fmt.Errorf("admin: ingest: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return fmt.Errorf("admin: ingest: redirect without location")
			}
			if strings.HasPrefix(loc, "/") {
				loc = c.baseURL + loc
			}
			c.logger.Infow("admin: PushCallRecord: following redirect", "ucid", callID, "location", loc)
			target = loc
			continue

		case http.StatusOK:
			var r ingestResult
			if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
				c.logger.Debugw("admin: PushCallRecord: decode", "ucid", callID, "ERROR", err)
			}
			resp.Body.Close()
			c.logger.Infow("admin: PushCallRecord: pushed", "ucid", callID, "callSessionId", r.CallSessionID)
			return nil

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			resp.Body.Close()
			return fmt.Errorf("admin: ingest: status %d: %s", resp.StatusCode, body)
		}
	}

	return fmt.Errorf("admin: ingest: too many redirects")
}

// DeliverWebhook posts payload to an external endpoint. name is used only
// for logging.
func (c *Client) DeliverWebhook(ctx context.Context, name, endpoint, authHeader string, payload any, callID string) error {
	if endpoint == "" {
		return fmt.Errorf("admin: %s webhook: no endpoint", name)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, endpoint, b, authHeader)
	if err != nil {
		return fmt.Errorf("admin: %s webhook: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		c.logger.Infow("admin: DeliverWebhook: delivered", "webhook", name, "ucid", callID, "status", resp.StatusCode)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("admin: %s webhook: status %d: %s", name, resp.StatusCode, body)
}

// =================================================================================================================

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(ctx context.Context, target string, body []byte, authHeader string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
