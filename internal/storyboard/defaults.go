package storyboard

import (
	"fmt"
	"strings"
)

// NewProject returns the starter project: one sequence holding one scene
// holding one empty shot. now is epoch milliseconds.
func NewProject(now int64) Project {
	return Project{
		Meta: ProjectMeta{
			Name:        DefaultProjectName,
			CreatedAt:   now,
			UpdatedAt:   now,
			FrameRate:   DefaultFrameRate,
			AspectRatio: DefaultAspectRatio,
		},
		ConceptArt: ConceptArtData{
			Characters: []ConceptCard{},
			Locations:  []ConceptCard{},
			Props:      []ConceptCard{},
		},
		Storyboard: StoryboardData{
			Sequences: []Sequence{newSequence(0)},
		},
	}
}

func newSequence(order int) Sequence {
	return Sequence{
		ID:     NewID(),
		Name:   fmt.Sprintf("Sequence %d", order+1),
		Scenes: []Scene{newScene(0)},
		Order:  order,
	}
}

func newScene(order int) Scene {
	return Scene{
		ID:    NewID(),
		Name:  fmt.Sprintf("Scene %d", order+1),
		Shots: []Shot{newShot(order, 0)},
		Order: order,
	}
}

func newShot(sceneIndex, order int) Shot {
	return Shot{
		ID:        NewID(),
		CutNumber: GenerateCutNumber(sceneIndex, order),
		Order:     order,
	}
}

func newConceptCard(category ConceptCategory, createdAt int64) ConceptCard {
	slots := make([]ConceptSlot, ConceptSlotCount)
	return ConceptCard{
		ID:        NewID(),
		Slots:     slots,
		Category:  category,
		CreatedAt: createdAt,
	}
}

// NormalizeAspectRatio accepts "W:H" or "W/H" and returns the canonical
// "W:H" form if it is one of AspectRatios.
func NormalizeAspectRatio(ratio string) (string, error) {
	r := strings.ReplaceAll(strings.TrimSpace(ratio), "/", ":")
	for _, known := range AspectRatios {
		if r == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAspectRatio, ratio)
}

// AspectValue returns width/height for a "W:H" ratio, or 16/9 if it cannot
// be parsed.
func AspectValue(ratio string) float64 {
	var w, h float64
	if _, err := fmt.Sscanf(ratio, "%g:%g", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 16.0 / 9.0
	}
	return w / h
}
