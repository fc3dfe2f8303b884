package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const statesPath = "/api/states/"

// StateStoreOptions parameterise the host state store client.
type StateStoreOptions struct {
	BaseURL   string
	Token     string
	EntityID  string
	Timeout   time.Duration
	UserAgent string
}

// StateStore reads the spot price entity from the host REST API.
type StateStore struct {
	opts    StateStoreOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewStateStore constructs a state store fetcher.
func NewStateStore(opts StateStoreOptions, logger zerolog.Logger) *StateStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StateStore{
		opts:    opts,
		logger:  logger.With().Str("component", "source_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchSource retrieves the entity state. A missing entity is reported as an
// unavailable update rather than an error.
func (s *StateStore) FetchSource(ctx context.Context) (Update, error) {
	if s.baseURL == "" || s.opts.EntityID == "" {
		return Update{}, fmt.Errorf("base url and entity id required")
	}

	endpoint := s.baseURL + statesPath + url.PathEscape(s.opts.EntityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Update{}, err
	}
	req.Header.Set("Accept", "application/json")
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Update{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Update{}, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		s.logger.Warn().Str("entity_id", s.opts.EntityID).Msg("source entity not found")
		return Update{EntityID: s.opts.EntityID}, nil
	case resp.StatusCode != http.StatusOK:
		return Update{}, parseHTTPError(resp.StatusCode, body)
	}

	update, err := ParseState(body)
	if err != nil {
		return Update{}, err
	}
	if update.EntityID == "" {
		update.EntityID = s.opts.EntityID
	}
	return update, nil
}

// FileSource reads a saved state document, used for offline runs.
type FileSource struct {
	Path string
}

// FetchSource reads and parses the file.
func (f FileSource) FetchSource(ctx context.Context) (Update, error) {
	body, err := os.ReadFile(f.Path)
	if err != nil {
		return Update{}, fmt.Errorf("read source file: %w", err)
	}
	update, err := ParseState(body)
	if err != nil {
		return Update{}, err
	}
	if update.EntityID == "" {
		update.EntityID = f.Path
	}
	return update, nil
}

type errorResponse struct {
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("state store error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("state store error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("state store error (%d)", status)
}

var _ SourceFetcher = (*StateStore)(nil)
var _ SourceFetcher = FileSource{}
