package simfeed

import "encoding/json"

// Envelope is the response wrapper used by every simulation REST endpoint.
type Envelope struct {
	OK    bool            `json:"ok"`    // false indicates an upstream error
	Error string          `json:"error"` // human-readable message when OK is false
	Data  json.RawMessage `json:"data"`  // delay decoding; payload varies per endpoint
}

// PointPayload is one observation on the wire. Which fields are populated
// depends on the series kind; the zero fields are omitted by the upstream.
type PointPayload struct {
	Date        string  `json:"date"`
	Open        float64 `json:"open,omitempty"`
	High        float64 `json:"high,omitempty"`
	Low         float64 `json:"low,omitempty"`
	Close       float64 `json:"close,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
	Assets      float64 `json:"assets,omitempty"`
	Liabilities float64 `json:"liabilities,omitempty"`
	Equity      float64 `json:"equity,omitempty"`
	Value       float64 `json:"value,omitempty"`
}

// SeriesPayload is the /api/v1/series response body.
type SeriesPayload struct {
	Kind     string         `json:"kind"`
	Currency string         `json:"currency"`
	Subtype  string         `json:"subtype"`
	Points   []PointPayload `json:"points"`
}

// StatusPayload is the /api/v1/status response body.
type StatusPayload struct {
	CurrentDate string `json:"currentDate"`
	Day         int64  `json:"day"`
}

// DayEvent is pushed on the simulation's websocket feed whenever the
// simulated day rolls over. Other event types share the same envelope and
// are skipped by the feed.
type DayEvent struct {
	Type string `json:"type"`
	Date string `json:"date"`
}
