package frigate

import (
	"encoding/json"
	"testing"
)

func TestSubLabelShapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		raw       string
		wantName  string
		wantScore *float64
	}{
		{name: "null", raw: `null`},
		{name: "plain string", raw: `"delivery"`, wantName: "delivery"},
		{name: "name score pair", raw: `["alice", 0.95]`, wantName: "alice", wantScore: f(0.95)},
		{name: "pair without score", raw: `["alice"]`, wantName: "alice"},
		{name: "record with subLabel", raw: `{"subLabel": "bob", "score": 0.8}`, wantName: "bob", wantScore: f(0.8)},
		{name: "record with snake case", raw: `{"sub_label": "bob", "confidence": 0.7}`, wantName: "bob", wantScore: f(0.7)},
		{name: "record with name", raw: `{"name": "bob"}`, wantName: "bob"},
		{name: "unknown shape tolerated", raw: `12345`},
		{name: "pair with junk score", raw: `["alice", "high"]`, wantName: "alice"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var s SubLabel
			if err := json.Unmarshal([]byte(tt.raw), &s); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.raw, err)
			}
			if s.Name != tt.wantName {
				t.Fatalf("Name = %q, want %q", s.Name, tt.wantName)
			}
			switch {
			case tt.wantScore == nil && s.Score != nil:
				t.Fatalf("Score = %v, want nil", *s.Score)
			case tt.wantScore != nil && (s.Score == nil || *s.Score != *tt.wantScore):
				t.Fatalf("Score = %v, want %v", s.Score, *tt.wantScore)
			}
		})
	}
}

func TestEventDecode(t *testing.T) {
	t.Parallel()
	raw := `{
		"id": "1700000000.5-abcd",
		"camera": "porch",
		"label": "person",
		"zones": ["drive"],
		"top_score": 0.88,
		"start_time": 1700000000.5,
		"end_time": null,
		"sub_label": ["alice", 0.95],
		"has_clip": true
	}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if ev.ID != "1700000000.5-abcd" || ev.Camera != "porch" || !ev.HasClip {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Ended() {
		t.Fatal("event with null end_time must not be ended")
	}
	if ev.SubLabel.Name != "alice" || ev.SubLabel.Score == nil || *ev.SubLabel.Score != 0.95 {
		t.Fatalf("sub label not normalized: %+v", ev.SubLabel)
	}
}

func TestEventEnded(t *testing.T) {
	t.Parallel()
	var ev Event
	if ev.Ended() {
		t.Fatal("nil end time must not count as ended")
	}
	ev.EndTime = f(0)
	if ev.Ended() {
		t.Fatal("zero end time must not count as ended")
	}
	ev.EndTime = f(1_700_000_030)
	if !ev.Ended() {
		t.Fatal("non-zero end time must count as ended")
	}
}

func f(v float64) *float64 { return &v }
