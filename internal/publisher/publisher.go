package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"power-price-level/internal/sensor"
)

// Publisher pushes derived entity states to the host.
type Publisher interface {
	Publish(ctx context.Context, snapshot sensor.Snapshot) error
}

// StateStoreOptions parameterise the REST publisher.
type StateStoreOptions struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// StateStore writes entity states through the host REST API.
type StateStore struct {
	opts    StateStoreOptions
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewStateStore constructs a REST publisher.
func NewStateStore(opts StateStoreOptions, logger zerolog.Logger) *StateStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StateStore{
		opts:    opts,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "publisher").Logger(),
	}
}

type statePayload struct {
	State      string `json:"state"`
	Attributes any    `json:"attributes"`
}

// Publish posts the snapshot to /api/states/<entity_id>.
func (p *StateStore) Publish(ctx context.Context, snapshot sensor.Snapshot) error {
	if snapshot.EntityID == "" {
		return fmt.Errorf("snapshot has no entity id")
	}

	body, err := json.Marshal(statePayload{State: snapshot.State, Attributes: snapshot.Attributes})
	if err != nil {
		return fmt.Errorf("marshal state payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/states/%s", p.baseURL, url.PathEscape(snapshot.EntityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create state request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.opts.Token)
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send state request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("state store returned status %d for %s", resp.StatusCode, snapshot.EntityID)
	}

	p.logger.Debug().Str("entity_id", snapshot.EntityID).
		Str("state", snapshot.State).
		Msg("state published")
	return nil
}

// Log only records the snapshots; used when no host token is configured.
type Log struct {
	logger zerolog.Logger
}

// NewLog constructs a logging publisher.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "publisher").Logger()}
}

// Publish logs the snapshot state.
func (l *Log) Publish(ctx context.Context, snapshot sensor.Snapshot) error {
	l.logger.Info().Str("entity_id", snapshot.EntityID).
		Str("state", snapshot.State).
		Msg("state computed (not published)")
	return nil
}

var _ Publisher = (*StateStore)(nil)
var _ Publisher = (*Log)(nil)
