package storyboard

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the project in its storage form.
func Encode(p Project) ([]byte, error) {
	return json.Marshal(withEmptySlices(p))
}

// Decode parses a stored project, migrating legacy concept cards and
// replacing missing lists with empty ones.
func Decode(data []byte) (Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}
	return withEmptySlices(p), nil
}

// UnmarshalJSON accepts both the current card shape and the legacy
// {images: [...], description} shape. Legacy images become slots with empty
// descriptions; the legacy card-level description is dropped.
func (c *ConceptCard) UnmarshalJSON(data []byte) error {
	type card ConceptCard
	var wire struct {
		card
		Images []*ImageData `json:"images"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = ConceptCard(wire.card)
	if c.Slots == nil && wire.Images != nil {
		c.Slots = make([]ConceptSlot, len(wire.Images))
		for i, img := range wire.Images {
			c.Slots[i] = ConceptSlot{Image: img}
		}
	}
	return nil
}

func withEmptySlices(p Project) Project {
	p.ConceptArt.Characters = cardsOrEmpty(p.ConceptArt.Characters)
	p.ConceptArt.Locations = cardsOrEmpty(p.ConceptArt.Locations)
	p.ConceptArt.Props = cardsOrEmpty(p.ConceptArt.Props)

	if p.Storyboard.Sequences == nil {
		p.Storyboard.Sequences = []Sequence{}
		return p
	}
	seqs := make([]Sequence, len(p.Storyboard.Sequences))
	for i, seq := range p.Storyboard.Sequences {
		scenes := make([]Scene, len(seq.Scenes))
		for j, sc := range seq.Scenes {
			if sc.Shots == nil {
				sc.Shots = []Shot{}
			}
			scenes[j] = sc
		}
		seq.Scenes = scenes
		seqs[i] = seq
	}
	p.Storyboard.Sequences = seqs
	return p
}

func cardsOrEmpty(cards []ConceptCard) []ConceptCard {
	if cards == nil {
		return []ConceptCard{}
	}
	out := make([]ConceptCard, len(cards))
	for i, c := range cards {
		if c.Slots == nil {
			c.Slots = []ConceptSlot{}
		}
		out[i] = c
	}
	return out
}
