// Package summarize turns a compressed activity log into a short list of
// highlight bullets via an external language model. The port is tiny on
// purpose; prompt rendering and response parsing live here so every
// implementation produces the same shape.
package summarize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"ai-recorder-be/pkg/compress"
)

const (
	// MaxHighlights caps how many bullets a summary keeps.
	MaxHighlights = 3

	minHighlightLength = 6
)

// Summarizer produces highlight bullets for a compressed log. A failed
// summarization is never fatal to the session; callers recover with
// FallbackHighlights.
type Summarizer interface {
	Summarize(ctx context.Context, log []compress.Event) ([]string, error)
}

// RenderActivityLog renders the compressed log the way the summarizer prompt
// embeds it: one "[Ns]: description" line per event.
func RenderActivityLog(events []compress.Event) string {
	lines := make([]string, len(events))
	for i, event := range events {
		duration := strconv.FormatFloat(event.DurationSeconds, 'f', -1, 64)
		lines[i] = "[" + duration + "s]: " + event.Description
	}
	return strings.Join(lines, "\n")
}

var bulletMarker = regexp.MustCompile(`^([-*•]+|\d+[.):])\s*`)

// ParseHighlights extracts highlight bullets from free-text model output:
// one per line, leading bullet or number markers stripped, lines shorter
// than 6 characters dropped, at most MaxHighlights kept.
func ParseHighlights(content string) []string {
	highlights := make([]string, 0, MaxHighlights)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = bulletMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if len(line) < minHighlightLength {
			continue
		}
		highlights = append(highlights, line)
		if len(highlights) == MaxHighlights {
			break
		}
	}
	return highlights
}

// FallbackHighlights is the fixed set shown when summarization fails.
func FallbackHighlights() []string {
	return []string{
		"Recorded a screen session",
		"Automatic summary was unavailable",
		"See the activity log for details",
	}
}

// PlaceholderHighlights is shown on a session until its summary lands.
func PlaceholderHighlights() []string {
	return []string{"Summary in progress"}
}
