package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestStateStoreMissingConfig(t *testing.T) {
	s := NewStateStore(StateStoreOptions{}, noopLogger())
	_, err := s.FetchSource(context.Background())
	assert.Error(t, err)
}

func TestStateStoreFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/states/sensor.nordpool", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"entity_id": "sensor.nordpool",
			"state": "1.23",
			"last_updated": "2025-03-30T11:00:00.5+00:00",
			"attributes": {"today": [1.5, null, 2], "tomorrow": null}
		}`))
	}))
	defer srv.Close()

	s := NewStateStore(StateStoreOptions{BaseURL: srv.URL + "/", Token: "secret", EntityID: "sensor.nordpool", Timeout: time.Second}, noopLogger())

	update, err := s.FetchSource(context.Background())
	require.NoError(t, err)
	assert.True(t, update.Available)
	assert.Equal(t, "sensor.nordpool", update.EntityID)
	assert.False(t, update.LastUpdated.IsZero())
	require.Len(t, update.Today, 3)
	assert.Equal(t, 1.5, *update.Today[0])
	assert.Nil(t, update.Today[1])
	assert.Empty(t, update.Tomorrow)
}

func TestStateStoreEntityMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Entity not found."}`))
	}))
	defer srv.Close()

	s := NewStateStore(StateStoreOptions{BaseURL: srv.URL, EntityID: "sensor.gone"}, noopLogger())

	update, err := s.FetchSource(context.Background())
	require.NoError(t, err)
	assert.False(t, update.Available)
	assert.Equal(t, "sensor.gone", update.EntityID)
}

func TestStateStoreHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Invalid token"}`))
	}))
	defer srv.Close()

	s := NewStateStore(StateStoreOptions{BaseURL: srv.URL, EntityID: "sensor.x"}, noopLogger())

	_, err := s.FetchSource(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token")
}

func TestParseStateUnavailable(t *testing.T) {
	update, err := ParseState([]byte(`{"entity_id": "sensor.x", "state": "unavailable", "attributes": {}}`))
	require.NoError(t, err)
	assert.False(t, update.Available)
	assert.Empty(t, update.Today)
}

func TestParseQuarterHoursMalformed(t *testing.T) {
	assert.Nil(t, ParseQuarterHours([]byte(`"not a list"`)))
	assert.Nil(t, ParseQuarterHours([]byte(`[1, "2", 3]`)))
	assert.Nil(t, ParseQuarterHours([]byte(`{"a": 1}`)))
	assert.Nil(t, ParseQuarterHours(nil))
	assert.Len(t, ParseQuarterHours([]byte(`[null, null]`)), 2)
}

func TestFileSourceAcceptsBareAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"today": [1, 2, 3, 4], "tomorrow": []}`), 0o600))

	update, err := FileSource{Path: path}.FetchSource(context.Background())
	require.NoError(t, err)
	assert.True(t, update.Available)
	assert.Equal(t, path, update.EntityID)
	assert.Len(t, update.Today, 4)
	assert.Empty(t, update.Tomorrow)
}
