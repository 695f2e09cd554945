// Package ha talks to the host platform's REST API: service calls for
// outbound commands and a one-shot state fetch for the first paint.
package ha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
	"schedcard/internal/core/port"

	"go.uber.org/zap"
)

// Client communicates with a Home Assistant style REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.HAConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With(zap.String("component", "ha_client")),
	}
}

type serviceCallBody struct {
	EntityID string `json:"entity_id"`
	Value    string `json:"value,omitempty"`
}

// Call executes one service call. Success is silent; the caller surfaces
// failures as a notification event.
func (c *Client) Call(ctx context.Context, call domain.ServiceCall) error {
	body := serviceCallBody{EntityID: call.EntityID}
	if call.HasValue {
		body.Value = call.Value
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, call.Domain, call.Service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", call.Domain, call.Service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("call %s.%s on %s: unexpected status %d: %s",
			call.Domain, call.Service, call.EntityID, resp.StatusCode, string(msg))
	}
	c.logger.Debug("ha_client: service call ok",
		zap.String("domain", call.Domain),
		zap.String("service", call.Service),
		zap.String("entity_id", call.EntityID))
	return nil
}

type stateRecord struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// States fetches the full entity state set as an initial snapshot.
func (c *Client) States(ctx context.Context) (domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/states", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch states: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch states: unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	var records []stateRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("fetch states: %w", err)
	}
	snapshot := make(domain.Snapshot, len(records))
	for _, r := range records {
		snapshot[r.EntityID] = domain.EntityState{
			EntityID:    r.EntityID,
			Value:       r.State,
			Attributes:  r.Attributes,
			LastChanged: r.LastChanged,
			LastUpdated: r.LastUpdated,
		}
	}
	return snapshot, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
}

// ensure interface compliance
var _ port.CommandExecutor = (*Client)(nil)
