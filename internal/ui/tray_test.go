package ui

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func TestProjectTitle(t *testing.T) {
	p := storyboard.NewProject(0)
	if got := projectTitle(p); got != "TB STORYBOARD (1 shot)" {
		t.Errorf("projectTitle() = %q", got)
	}

	seq := p.Storyboard.Sequences[0]
	p, _, _ = storyboard.AddShot(p, seq.ID, seq.Scenes[0].ID)
	if got := projectTitle(storyboard.SetName(p, "Pilot")); got != "Pilot (2 shots)" {
		t.Errorf("projectTitle() = %q", got)
	}
}

func TestStorageTitle(t *testing.T) {
	tests := []struct {
		size  int
		quota bool
		want  string
	}{
		{0, false, "Storage: 0.00 MB"},
		{1 << 20, false, "Storage: 1.00 MB"},
		{4 << 20, false, "Storage: 4.00 MB of 4.00 MB (nearly full)"},
		{3 << 20, true, "Storage full: 3.00 MB, changes not saved"},
	}
	for _, tt := range tests {
		if got := storageTitle(tt.size, 4<<20, tt.quota); got != tt.want {
			t.Errorf("storageTitle(%d, %v) = %q, want %q", tt.size, tt.quota, got, tt.want)
		}
	}
}

func TestIconIsPNG(t *testing.T) {
	if _, err := png.Decode(bytes.NewReader(iconBytes)); err != nil {
		t.Fatalf("embedded icon is not a PNG: %v", err)
	}
}
