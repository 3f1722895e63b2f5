// Package record turns a finished call into its transcript file, SI payload
// and webhook deliveries.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/config"
	"github.com/superfeelapi/goLiveBridge/foundation/external/admin"
	"github.com/superfeelapi/goLiveBridge/foundation/external/google"
	"github.com/superfeelapi/goLiveBridge/foundation/state"
	"github.com/superfeelapi/goLiveBridge/foundation/storage"
	"github.com/superfeelapi/goLiveBridge/foundation/transcript"
	"go.uber.org/zap"
)

const unknownUCID = "UNKNOWN"

// Call is everything the session knows about a finished call.
type Call struct {
	UCID           string
	Agent          config.Agent
	CustomerNumber string
	StoreCode      string
	Start          time.Time
	End            time.Time
	Entries        []transcript.Entry
	Transferred    bool
}

// Store persists transcripts and payloads.
type Store interface {
	SaveTranscript(agentDir, agent, callID string, entries []transcript.Entry, md storage.Metadata) (string, error)
	LoadTranscript(path string) (storage.Transcript, error)
	SaveSIPayload(agentDir, callID string, payload any) (string, error)
	SaveWaybeoPayload(agentDir, callID string, payload any) (string, error)
}

// Admin is the admin UI and webhook collaborator.
type Admin interface {
	FetchAgentConfig(ctx context.Context, slug string) *admin.AgentConfig
	PushCallRecord(ctx context.Context, payload any, callID string) error
	DeliverWebhook(ctx context.Context, name, endpoint, authHeader string, payload any, callID string) error
}

// Extractor pulls structured fields out of a transcript with a model.
type Extractor interface {
	Extract(ctx context.Context, entries []transcript.Entry, agentContext string) (google.Fields, error)
}

// Publisher publishes the call record on a Redis channel suffix.
type Publisher interface {
	Publish(ctx context.Context, suffix string, payload []byte) error
}

type Settings struct {
	Store     Store
	Admin     Admin
	Extractor Extractor
	Redis     Publisher
	State     *state.State
	Logger    *zap.SugaredLogger
}

// Finalizer runs the post-call pipeline. Every step after the transcript is
// saved is best effort.
type Finalizer struct {
	store     Store
	admin     Admin
	extractor Extractor
	redis     Publisher
	state     *state.State
	logger    *zap.SugaredLogger
}

func New(s Settings) *Finalizer {
	st := s.State
	if st == nil {
		st = state.NewState()
	}
	return &Finalizer{
		store:     s.Store,
		admin:     s.Admin,
		extractor: s.Extractor,
		redis:     s.Redis,
		state:     st,
		logger:    s.Logger,
	}
}

// Finalize saves the call and delivers its record. Calls without a UCID or
// without any transcript are skipped. An error is returned only when the
// transcript could not be persisted; later failures are logged.
func (f *Finalizer) Finalize(ctx context.Context, c Call) error {
	log := f.logger.With("ucid", c.UCID, "agent", c.Agent.Slug)

	if c.UCID == "" || c.UCID == unknownUCID {
		log.Infow("record: finalize: skipped, unknown call")
		return nil
	}
	if len(c.Entries) == 0 {
		log.Infow("record: finalize: skipped, empty transcript")
		return nil
	}

	log.Infow("record: finalize: started", "entries", len(c.Entries))
	defer log.Infow("record: finalize: completed")

	var agentCfg *admin.AgentConfig
	if f.admin != nil {
		agentCfg = f.admin.FetchAgentConfig(ctx, c.Agent.Slug)
	}

	entries, duration, err := f.persistTranscript(c)
	if err != nil {
		return err
	}

	var fields *google.Fields
	if f.extractor != nil {
		fx, err := f.extractor.Extract(ctx, entries, c.Agent.DisplayName()+" car sales call")
		if err != nil {
			log.Warnw("record: finalize: model extraction failed, using patterns", "ERROR", err)
		} else {
			fields = &fx
			log.Infow("record: finalize: extracted", "method", fx.Method)
		}
	}

	items := ExtractResponses(entries, fields)
	si := BuildSIPayload(c, entries, items, duration)

	if _, err := f.store.SaveSIPayload(c.Agent.DirName(), c.UCID, si); err != nil && !errors.Is(err, storage.ErrDisabled) {
		log.Errorw("record: finalize: save si payload", "ERROR", err)
	}

	if f.admin != nil && f.state.Allow(state.Admin) {
		err := f.admin.PushCallRecord(ctx, si, c.UCID)
		if errors.Is(err, admin.ErrDisabled) {
			err = nil
		}
		if f.state.Report(state.Admin, err) && err == nil {
			log.Infow("record: finalize: admin push recovered")
		}
		if err != nil {
			log.Errorw("record: finalize: push call record", "ERROR", err)
		}
	}

	f.publish(ctx, log, si)

	if agentCfg != nil {
		f.deliver(ctx, log, c, si, agentCfg)
	}

	return nil
}

// =====================================================================================================================

// persistTranscript saves the transcript and reads it back so the payload is
// built from what was stored. With storage disabled the in-memory entries
// are used.
func (f *Finalizer) persistTranscript(c Call) ([]transcript.Entry, int, error) {
	duration := int(c.End.Sub(c.Start).Seconds())

	md := storage.Metadata{
		Agent:       c.Agent.Slug,
		DurationSec: duration,
		StartTime:   c.Start.UTC(),
		EndTime:     c.End.UTC(),
	}

	path, err := f.store.SaveTranscript(c.Agent.DirName(), c.Agent.Slug, c.UCID, c.Entries, md)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		return c.Entries, duration, nil
	case err != nil:
		return nil, 0, fmt.Errorf("record: save transcript: %w", err)
	}

	t, err := f.store.LoadTranscript(path)
	if err != nil {
		return nil, 0, fmt.Errorf("record: load transcript: %w", err)
	}

	if t.Metadata.DurationSec > 0 {
		duration = t.Metadata.DurationSec
	}
	return t.Conversation, duration, nil
}

func (f *Finalizer) publish(ctx context.Context, log *zap.SugaredLogger, si SIPayload) {
	if f.redis == nil || !f.state.Allow(state.Redis) {
		return
	}

	b, err := json.Marshal(si)
	if err != nil {
		log.Errorw("record: publish: marshal", "ERROR", err)
		return
	}

	err = f.redis.Publish(ctx, "call.record", b)
	if f.state.Report(state.Redis, err) && err == nil {
		log.Infow("record: publish: redis recovered")
	}
	if err != nil {
		log.Errorw("record: publish: redis", "ERROR", err)
	}
}

func (f *Finalizer) deliver(ctx context.Context, log *zap.SugaredLogger, c Call, si SIPayload, cfg *admin.AgentConfig) {
	customerName := cfg.SICustomerName
	if customerName == "" {
		customerName = si.CustomerName
	}
	agentName := cfg.Name
	if agentName == "" {
		agentName = c.Agent.Slug
	}

	tctx := TemplateContext(c, si, customerName, agentName)

	if cfg.SIEndpointURL != "" {
		var payload any = si
		if cfg.SIPayloadTemplate != nil {
			r := Render(cfg.SIPayloadTemplate, tctx)
			if len(r.Missing) > 0 {
				log.Warnw("record: deliver: si template missing values", "placeholders", r.Missing)
			}
			payload = r.Payload
		}

		if err := f.admin.DeliverWebhook(ctx, "si", cfg.SIEndpointURL, cfg.SIAuthHeader, payload, c.UCID); err != nil {
			log.Errorw("record: deliver: si webhook", "ERROR", err)
		}
	}

	if cfg.WaybeoEndpointURL != "" {
		var payload any = BuildWaybeoPayload(c, si)
		if cfg.WaybeoPayloadTemplate != nil {
			r := Render(cfg.WaybeoPayloadTemplate, tctx)
			if len(r.Missing) > 0 {
				log.Warnw("record: deliver: waybeo template missing values", "placeholders", r.Missing)
			}
			payload = r.Payload
		}

		if _, err := f.store.SaveWaybeoPayload(c.Agent.DirName(), c.UCID, payload); err != nil && !errors.Is(err, storage.ErrDisabled) {
			log.Errorw("record: deliver: save waybeo payload", "ERROR", err)
		}

		if err := f.admin.DeliverWebhook(ctx, "waybeo", cfg.WaybeoEndpointURL, cfg.WaybeoAuthHeader, payload, c.UCID); err != nil {
			log.Errorw("record: deliver: waybeo webhook", "ERROR", err)
		}
	}
}
