// Package storyboard holds the project tree (sequences, scenes, shots and
// concept art) and the pure update functions that produce new trees from it.
//
// Every function in this package treats its Project argument as immutable:
// slices along the mutated path are copied, untouched branches are shared.
package storyboard

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	DefaultProjectName = "TB STORYBOARD"
	DefaultFrameRate   = 24
	DefaultAspectRatio = "16:9"

	// ConceptSlotCount is the number of image slots on a new concept card.
	ConceptSlotCount = 4
)

// AspectRatios lists the frame ratios a project may use.
var AspectRatios = []string{"16:9", "4:3", "2.39:1", "1.85:1", "1:1", "9:16"}

type Project struct {
	Meta       ProjectMeta    `json:"meta"`
	ConceptArt ConceptArtData `json:"conceptArt"`
	Storyboard StoryboardData `json:"storyboard"`
}

type ProjectMeta struct {
	Name        string `json:"name"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
	FrameRate   int    `json:"frameRate"`
	AspectRatio string `json:"aspectRatio"`
}

type StoryboardData struct {
	Sequences []Sequence `json:"sequences"`
}

type Sequence struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Scenes []Scene `json:"scenes"`
	Order  int     `json:"order"`
}

type Scene struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Shots []Shot `json:"shots"`
	Order int    `json:"order"`
}

type Shot struct {
	ID        string     `json:"id"`
	CutNumber string     `json:"cutNumber"`
	Image     *ImageData `json:"image"`
	Time      TimeCode   `json:"time"`
	Action    string     `json:"action"`
	Dialogue  string     `json:"dialogue"`
	Order     int        `json:"order"`
}

// ImageData is an uploaded image after downscaling, stored inline as a data URL.
type ImageData struct {
	ID      string `json:"id"`
	DataURL string `json:"dataUrl"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type ConceptCategory string

const (
	CategoryCharacters ConceptCategory = "characters"
	CategoryLocations  ConceptCategory = "locations"
	CategoryProps      ConceptCategory = "props"
)

var ConceptCategories = []ConceptCategory{CategoryCharacters, CategoryLocations, CategoryProps}

func ParseCategory(s string) (ConceptCategory, error) {
	for _, c := range ConceptCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

type ConceptArtData struct {
	Characters []ConceptCard `json:"characters"`
	Locations  []ConceptCard `json:"locations"`
	Props      []ConceptCard `json:"props"`
}

// Cards returns the card list for a category.
func (c ConceptArtData) Cards(category ConceptCategory) []ConceptCard {
	switch category {
	case CategoryCharacters:
		return c.Characters
	case CategoryLocations:
		return c.Locations
	case CategoryProps:
		return c.Props
	}
	return nil
}

func (c ConceptArtData) withCards(category ConceptCategory, cards []ConceptCard) ConceptArtData {
	switch category {
	case CategoryCharacters:
		c.Characters = cards
	case CategoryLocations:
		c.Locations = cards
	case CategoryProps:
		c.Props = cards
	}
	return c
}

type ConceptCard struct {
	ID        string          `json:"id"`
	Slots     []ConceptSlot   `json:"slots"`
	Name      string          `json:"name"`
	Category  ConceptCategory `json:"category"`
	CreatedAt int64           `json:"createdAt"`
}

type ConceptSlot struct {
	Image       *ImageData `json:"image"`
	Description string     `json:"description"`
}

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// FindSequence returns the sequence with the given id.
func (p Project) FindSequence(id string) (Sequence, bool) {
	for _, seq := range p.Storyboard.Sequences {
		if seq.ID == id {
			return seq, true
		}
	}
	return Sequence{}, false
}

// FindScene returns the scene and its index within the sequence.
func (s Sequence) FindScene(id string) (Scene, int, bool) {
	for i, sc := range s.Scenes {
		if sc.ID == id {
			return sc, i, true
		}
	}
	return Scene{}, -1, false
}

// FindShot returns the shot with the given id.
func (s Scene) FindShot(id string) (Shot, bool) {
	for _, shot := range s.Shots {
		if shot.ID == id {
			return shot, true
		}
	}
	return Shot{}, false
}

// ShotCount counts every shot in the project.
func (p Project) ShotCount() int {
	n := 0
	for _, seq := range p.Storyboard.Sequences {
		for _, sc := range seq.Scenes {
			n += len(sc.Shots)
		}
	}
	return n
}

// Duration is the total run time of the scene in frames.
func (s Scene) Duration(frameRate int) int {
	total := 0
	for _, shot := range s.Shots {
		total += TimeCodeToFrames(shot.Time, frameRate)
	}
	return total
}
