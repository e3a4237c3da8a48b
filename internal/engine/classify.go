package engine

import (
	"encoding/json"
	"math"
	"strings"
)

// LineKind tags a classified log line from the engine subprocess.
type LineKind int

// Line kinds.
const (
	// PlainLine is an ordinary log line with no special meaning.
	PlainLine LineKind = iota
	// ProgressLine carries a structured setup progress stage.
	ProgressLine
	// ReadySignal marks the line that flips the server to ready.
	ReadySignal
)

// stageSentinel prefixes machine-readable progress lines emitted by the
// server during model load and setup.
const stageSentinel = "STAGE_JSON:"

// readyPhrases are matched as substrings against each line. The first match
// wins; the supervisor flips to ready exactly once per process.
var readyPhrases = []string{
	"SERVER READY",
	"Uvicorn running on",
}

// ProgressStage is a structured setup progress report.
type ProgressStage struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// Classification is the result of classifying one log line.
type Classification struct {
	Kind  LineKind
	Line  string
	Stage ProgressStage // valid only when Kind == ProgressLine
}

// Classify inspects a single line of subprocess output.
//
// A line carrying the stage sentinel is parsed as JSON; a sentinel line whose
// payload does not parse degrades to a plain line rather than being dropped.
// Percent is clamped to [0, 100] and rounded to the nearest integer value.
func Classify(line string) Classification {
	trimmed := strings.TrimSpace(line)

	if idx := strings.Index(trimmed, stageSentinel); idx >= 0 {
		payload := strings.TrimSpace(trimmed[idx+len(stageSentinel):])

		var stage ProgressStage
		if err := json.Unmarshal([]byte(payload), &stage); err == nil && stage.ID != "" {
			stage.Percent = clampPercent(stage.Percent)
			return Classification{Kind: ProgressLine, Line: line, Stage: stage}
		}

		return Classification{Kind: PlainLine, Line: line}
	}

	for _, phrase := range readyPhrases {
		if strings.Contains(trimmed, phrase) {
			return Classification{Kind: ReadySignal, Line: line}
		}
	}

	return Classification{Kind: PlainLine, Line: line}
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}

	if p > 100 {
		return 100
	}

	return math.Round(p)
}
