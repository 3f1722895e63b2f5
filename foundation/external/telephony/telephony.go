// Package telephony issues call-control commands to the telephony provider.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Command string

const (
	apiTimeout = 5

	TransferCommand Command = "transfer_call"
	HangupCommand   Command = "hangup_call"
)

// ErrControlFailed is returned when the provider did not accept a command.
var ErrControlFailed = errors.New("telephony: control command failed")

// Control posts commands to the provider's call-control endpoint.
type Control struct {
	apiEndpoint string
	apiToken    string
	client      *http.Client
}

func New(apiEndpoint, apiToken string) *Control {
	return &Control{
		apiEndpoint: apiEndpoint,
		apiToken:    apiToken,
		client:      &http.Client{},
	}
}

// Send posts {"command":cmd,"callId":callID}. Any transport error or non-2xx
// status is reported as ErrControlFailed.
func (c *Control) Send(ctx context.Context, cmd Command, callID string) error {
	if c.apiEndpoint == "" {
		return fmt.Errorf("%w: no endpoint configured", ErrControlFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	b, err := json.Marshal(commandData{Command: cmd, CallID: callID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiEndpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrControlFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrControlFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrControlFailed, resp.StatusCode, body)
	}

	return nil
}

// FallbackFrame is the client-leg event sent when the control endpoint fails.
func FallbackFrame(cmd Command, callID string) ([]byte, error) {
	return json.Marshal(fallbackData{Event: cmd, UCID: callID})
}
