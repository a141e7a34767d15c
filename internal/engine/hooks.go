package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPHookExecutor invokes external hooks as HTTP POSTs. The action
// config supplies the target:
//
//	{"url": "...", "payload": {...}}
//
// The payload document is sent as the JSON body. Any non-2xx status is a
// failure; the caller's context bounds the whole invocation.
type HTTPHookExecutor struct {
	client *http.Client
}

// NewHTTPHookExecutor creates an executor with the given client. A nil
// client uses http.DefaultClient; timeouts come from the invocation
// context, not the client.
func NewHTTPHookExecutor(client *http.Client) *HTTPHookExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPHookExecutor{client: client}
}

// Invoke posts the configured payload to the configured URL.
func (h *HTTPHookExecutor) Invoke(ctx context.Context, config map[string]interface{}) error {
	url, _ := config["url"].(string)
	if url == "" {
		return fmt.Errorf("hook config missing url")
	}
	payload, _ := config["payload"].(map[string]interface{})
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal hook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("hook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hook returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
