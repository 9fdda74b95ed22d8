package frigate

import (
	"encoding/json"
	"strings"
)

// Event is one detected occurrence reported by the detection API.
// Events are never mutated locally; a fresher copy may be re-fetched
// mid-pipeline to pick up a sub-label that resolved after creation.
type Event struct {
	ID        string   `json:"id"`
	Camera    string   `json:"camera"`
	Label     string   `json:"label"`
	Zones     []string `json:"zones"`
	TopScore  *float64 `json:"top_score"`
	StartTime float64  `json:"start_time"`
	// EndTime is nil while the event is still in progress.
	EndTime  *float64 `json:"end_time"`
	SubLabel SubLabel `json:"sub_label"`
	HasClip  bool     `json:"has_clip"`
}

// Ended reports whether the event has closed.
func (e *Event) Ended() bool { return e.EndTime != nil && *e.EndTime != 0 }

// SubLabel is a recognized-entity annotation (face, plate). The API delivers
// it in three shapes (a plain name, a [name, confidence] pair, or a
// name/confidence record), which all normalize here so downstream code never
// pattern-matches on raw JSON.
type SubLabel struct {
	Name  string
	Score *float64
}

func (s SubLabel) IsZero() bool { return s.Name == "" }

func (s *SubLabel) UnmarshalJSON(b []byte) error {
	*s = SubLabel{}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		return nil
	}

	// Plain name.
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		s.Name = name
		return nil
	}

	// [name, confidence] pair. Confidence is optional and tolerated as
	// anything numeric; a malformed second element degrades to name-only.
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) >= 1 {
			if err := json.Unmarshal(pair[0], &name); err != nil {
				return nil
			}
			s.Name = name
		}
		if len(pair) >= 2 {
			var score float64
			if err := json.Unmarshal(pair[1], &score); err == nil {
				s.Score = &score
			}
		}
		return nil
	}

	// Structured record.
	var rec struct {
		SubLabel   string   `json:"subLabel"`
		AltName    string   `json:"sub_label"`
		Name       string   `json:"name"`
		Score      *float64 `json:"score"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		// Unknown shape: treat as absent rather than failing the whole event.
		return nil
	}
	switch {
	case rec.SubLabel != "":
		s.Name = rec.SubLabel
	case rec.AltName != "":
		s.Name = rec.AltName
	default:
		s.Name = rec.Name
	}
	if rec.Score != nil {
		s.Score = rec.Score
	} else if rec.Confidence != nil {
		s.Score = rec.Confidence
	}
	return nil
}

func (s SubLabel) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	if s.Score != nil {
		return json.Marshal([]any{s.Name, *s.Score})
	}
	return json.Marshal(s.Name)
}
