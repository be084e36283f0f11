// Package compress collapses runs of near-identical vision observations into
// compact timeline events. A streak keeps the description of its FIRST member
// (the anchor); later members only stretch the time window and bump the
// occurrence count.
package compress

import (
	"encoding/json"
	"fmt"

	"ai-recorder-be/pkg/similarity"
)

// DefaultThreshold is the Jaccard score at or above which an observation is
// folded into the current streak.
const DefaultThreshold = 0.6

// Observation is one timestamped result from the vision collaborator.
// Timestamp is epoch milliseconds. Payload is usually a string but the
// collaborator may send structured objects.
type Observation struct {
	Timestamp int64 `json:"timestamp"`
	Payload   any   `json:"payload"`
}

// Event is a compressed streak of observations.
type Event struct {
	Description     string  `json:"description"`
	StartTime       int64   `json:"start_time"`
	EndTime         int64   `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
	Occurrences     int     `json:"occurrences"`
}

// ObservationText renders a payload for similarity comparison and display.
// Strings pass through verbatim; anything else is serialized to JSON so that
// equal objects always produce equal text.
func ObservationText(payload any) string {
	switch p := payload.(type) {
	case string:
		return p
	case nil:
		return ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(raw)
}

// Compress folds observations into events in a single forward pass. An
// observation extends the current streak when its text scores at least
// threshold against the streak anchor, otherwise it closes the streak and
// opens a new one. Observations are assumed to be in capture order.
func Compress(observations []Observation, threshold float64) []Event {
	if len(observations) == 0 {
		return nil
	}

	events := make([]Event, 0, len(observations))
	current := newStreak(observations[0])

	for _, obs := range observations[1:] {
		text := ObservationText(obs.Payload)
		if similarity.Jaccard(current.anchor, text) >= threshold {
			current.extend(obs.Timestamp)
			continue
		}
		events = append(events, current.event())
		current = newStreak(obs)
	}

	return append(events, current.event())
}

type streak struct {
	anchor      string
	start       int64
	end         int64
	occurrences int
}

func newStreak(obs Observation) *streak {
	return &streak{
		anchor:      ObservationText(obs.Payload),
		start:       obs.Timestamp,
		end:         obs.Timestamp,
		occurrences: 1,
	}
}

func (s *streak) extend(timestamp int64) {
	s.end = timestamp
	s.occurrences++
}

func (s *streak) event() Event {
	return Event{
		Description:     s.anchor,
		StartTime:       s.start,
		EndTime:         s.end,
		DurationSeconds: float64(s.end-s.start) / 1000.0,
		Occurrences:     s.occurrences,
	}
}
