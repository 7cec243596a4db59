package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the trigger payload. Schedulers send all sorts of envelopes; only
// these fields are ever inspected, everything else is ignored.
type Event struct {
	Source string    `json:"source"`
	Detail string    `json:"detail-type"`
	Time   time.Time `json:"time"`
}

// ParseEvent decodes a trigger payload. Presence is the only requirement;
// unknown fields pass through silently.
func ParseEvent(data []byte) (Event, error) {
	if len(data) == 0 {
		return Event{}, fmt.Errorf("empty event payload")
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return ev, nil
}

// ManualEvent builds the payload used for ad-hoc CLI invocations.
func ManualEvent() Event {
	return Event{Source: "manual", Time: time.Now().UTC()}
}
