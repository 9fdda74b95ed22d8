package telegram

import "testing"

func TestSnapshotPathEscapesCamera(t *testing.T) {
	t.Parallel()
	if got := snapshotPath("porch"); got != "porch/latest.jpg?bbox=1" {
		t.Fatalf("snapshotPath(porch) = %q", got)
	}
	if got := snapshotPath("front door"); got != "front%20door/latest.jpg?bbox=1" {
		t.Fatalf("snapshotPath(front door) = %q, want the camera segment escaped", got)
	}
}

func TestParseVideoArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload string
		camera  string
		seconds int
	}{
		{name: "empty", payload: "", camera: "", seconds: 15},
		{name: "camera only", payload: "porch", camera: "porch", seconds: 15},
		{name: "camera and seconds", payload: "porch 30", camera: "porch", seconds: 30},
		{name: "seconds capped", payload: "porch 900", camera: "porch", seconds: 60},
		{name: "camera name with spaces", payload: "front door 10", camera: "front door", seconds: 10},
		{name: "spacey name without seconds", payload: "front door", camera: "front door", seconds: 15},
		{name: "negative seconds ignored", payload: "porch -5", camera: "porch -5", seconds: 15},
		{name: "extra whitespace", payload: "  porch   20  ", camera: "porch", seconds: 20},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			camera, seconds := parseVideoArgs(tt.payload)
			if camera != tt.camera || seconds != tt.seconds {
				t.Fatalf("parseVideoArgs(%q) = (%q, %d), want (%q, %d)",
					tt.payload, camera, seconds, tt.camera, tt.seconds)
			}
		})
	}
}
