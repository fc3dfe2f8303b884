package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"power-price-level/internal/pricing"
)

// Update is one observation of the upstream spot price entity.
type Update struct {
	EntityID    string
	Available   bool
	LastUpdated time.Time
	Today       pricing.QuarterHours
	Tomorrow    pricing.QuarterHours
}

// SourceFetcher retrieves the current state of the spot price entity.
type SourceFetcher interface {
	FetchSource(ctx context.Context) (Update, error)
}

type stateDocument struct {
	EntityID    string                     `json:"entity_id"`
	State       string                     `json:"state"`
	LastUpdated time.Time                  `json:"last_updated"`
	Attributes  map[string]json.RawMessage `json:"attributes"`
}

// ParseState decodes an entity state document. A bare attribute object with
// today/tomorrow keys is accepted as well.
func ParseState(body []byte) (Update, error) {
	var doc stateDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return Update{}, fmt.Errorf("decode state: %w", err)
	}

	attrs := doc.Attributes
	if attrs == nil {
		if err := json.Unmarshal(body, &attrs); err != nil {
			return Update{}, fmt.Errorf("decode attributes: %w", err)
		}
	}

	return Update{
		EntityID:    doc.EntityID,
		Available:   doc.State != "unavailable" && doc.State != "unknown",
		LastUpdated: doc.LastUpdated,
		Today:       ParseQuarterHours(attrs["today"]),
		Tomorrow:    ParseQuarterHours(attrs["tomorrow"]),
	}, nil
}

// ParseQuarterHours decodes a list of optional prices. Anything that is not a
// list of numbers and nulls is treated as no data.
func ParseQuarterHours(raw json.RawMessage) pricing.QuarterHours {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make(pricing.QuarterHours, len(items))
	for i, item := range items {
		if string(item) == "null" {
			continue
		}
		var v float64
		if err := json.Unmarshal(item, &v); err != nil {
			return nil
		}
		out[i] = &v
	}
	return out
}
