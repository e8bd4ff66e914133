package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Priorities a recommendation may carry.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type rawRecommendation struct {
	ElementIndex    json.RawMessage `json:"elementIndex"`
	Reasoning       *string         `json:"reasoning"`
	Priority        string          `json:"priority"`
	ExpectedOutcome *string         `json:"expectedOutcome"`
}

// parseRecommendation extracts the first JSON object from text and checks
// elementIndex against the number of elements the model was shown.
func parseRecommendation(text string, numElements int) (*Recommendation, error) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var raw rawRecommendation
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	idx, err := parseIndex(raw.ElementIndex)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= numElements {
		return nil, fmt.Errorf("elementIndex %d out of range [0, %d)", idx, numElements)
	}
	if raw.Reasoning == nil {
		return nil, errors.New("missing reasoning")
	}
	if raw.ExpectedOutcome == nil {
		return nil, errors.New("missing expectedOutcome")
	}

	return &Recommendation{
		ElementIndex:    idx,
		Reasoning:       strings.TrimSpace(*raw.Reasoning),
		Priority:        normalizePriority(raw.Priority),
		ExpectedOutcome: strings.TrimSpace(*raw.ExpectedOutcome),
	}, nil
}

// parseIndex accepts JSON numbers with an integral value ("2" or "2.0").
// Strings, null and fractions are rejected.
func parseIndex(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errors.New("missing elementIndex")
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, fmt.Errorf("elementIndex must be a number, got %s", raw)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("decode elementIndex: %w", err)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("elementIndex must be an integer, got %s", raw)
	}
	return int(f), nil
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// extractJSONObject returns the first balanced {...} substring of s.
// Braces inside JSON strings are ignored, so prose and markdown fences
// around the object do not matter.
func extractJSONObject(s string) (string, error) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			return s[start:end], nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", errors.New("no JSON object found in response")
}

// matchBrace returns the index just past the brace closing s[start], or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
