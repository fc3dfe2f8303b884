package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"power-price-level/internal/sensor"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestStateStorePublish(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/states/sensor.power_price_level", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewStateStore(StateStoreOptions{BaseURL: srv.URL, Token: "token", Timeout: time.Second}, testLogger())
	snapshot := sensor.Snapshot{
		EntityID:   "sensor.power_price_level",
		State:      "Cheap",
		Attributes: map[string]any{"source_entity": "sensor.power_price"},
	}

	require.NoError(t, p.Publish(context.Background(), snapshot))
	assert.Equal(t, "Cheap", received["state"])
	assert.Equal(t, map[string]any{"source_entity": "sensor.power_price"}, received["attributes"])
}

func TestStateStorePublishError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewStateStore(StateStoreOptions{BaseURL: srv.URL, Token: "bad"}, testLogger())

	assert.Error(t, p.Publish(context.Background(), sensor.Snapshot{EntityID: "sensor.x", State: "1"}))
	assert.Error(t, p.Publish(context.Background(), sensor.Snapshot{State: "1"}))
}

func TestLogPublisherNeverFails(t *testing.T) {
	assert.NoError(t, NewLog(testLogger()).Publish(context.Background(), sensor.Snapshot{EntityID: "sensor.x"}))
}
