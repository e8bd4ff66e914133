package explorer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/v0xg/webexplore/internal/executor"
)

// StepRecord is the history entry for one attempted action.
type StepRecord struct {
	Step         int           `json:"step"`
	URL          string        `json:"url"`
	Kind         executor.Kind `json:"kind"`
	Selector     string        `json:"selector"`
	Label        string        `json:"label"`
	Value        string        `json:"value,omitempty"`
	Source       string        `json:"source"` // metrics.SourceRecommender or metrics.SourceHeuristic
	Reasoning    string        `json:"reasoning,omitempty"`
	Success      bool          `json:"success"`
	ResultingURL string        `json:"resultingUrl,omitempty"`
	NewPage      bool          `json:"newPage,omitempty"`
	Error        string        `json:"error,omitempty"`
	X            int           `json:"x,omitempty"`
	Y            int           `json:"y,omitempty"`
}

// Summary is reported when a session terminates, whatever the reason.
type Summary struct {
	SessionID   string        `json:"sessionId"`
	StartURL    string        `json:"startUrl"`
	Reason      string        `json:"reason"`
	Success     bool          `json:"success"`
	Navigations int           `json:"navigations"`
	Target      int           `json:"target"`
	TotalClicks int           `json:"totalClicks"`
	Failures    int           `json:"consecutiveFailures"`
	Steps       []StepRecord  `json:"steps"`
	Visited     []string      `json:"visited"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"durationMs"`

	// Err is the termination reason; errors.Is works against the Err* values.
	Err error `json:"-"`
}

// WriteReport writes the summary as indented JSON.
func (s *Summary) WriteReport(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
