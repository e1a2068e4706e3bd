package storyboard

import (
	"fmt"
	"slices"
)

type ConceptCardUpdate struct {
	Name *string `json:"name,omitempty"`
}

// AddConceptCard appends an unnamed card with ConceptSlotCount empty slots.
func AddConceptCard(p Project, category ConceptCategory, createdAt int64) (Project, ConceptCard, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return p, ConceptCard{}, err
	}
	card := newConceptCard(category, createdAt)
	cards := append(slices.Clip(p.ConceptArt.Cards(category)), card)
	p.ConceptArt = p.ConceptArt.withCards(category, cards)
	return p, card, nil
}

func UpdateConceptCard(p Project, category ConceptCategory, cardID string, upd ConceptCardUpdate) (Project, error) {
	return withCard(p, category, cardID, func(card ConceptCard) (ConceptCard, error) {
		if upd.Name != nil {
			card.Name = *upd.Name
		}
		return card, nil
	})
}

func DeleteConceptCard(p Project, category ConceptCategory, cardID string) (Project, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return p, err
	}
	cards := p.ConceptArt.Cards(category)
	i := slices.IndexFunc(cards, func(c ConceptCard) bool { return c.ID == cardID })
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	p.ConceptArt = p.ConceptArt.withCards(category, slices.Delete(slices.Clone(cards), i, i+1))
	return p, nil
}

// SetConceptSlotImage replaces the image in one slot; nil clears it.
func SetConceptSlotImage(p Project, category ConceptCategory, cardID string, slot int, img *ImageData) (Project, error) {
	return withSlot(p, category, cardID, slot, func(s ConceptSlot) ConceptSlot {
		if img == nil {
			s.Image = nil
			return s
		}
		cp := *img
		s.Image = &cp
		return s
	})
}

func SetConceptSlotDescription(p Project, category ConceptCategory, cardID string, slot int, description string) (Project, error) {
	return withSlot(p, category, cardID, slot, func(s ConceptSlot) ConceptSlot {
		s.Description = description
		return s
	})
}

func withSlot(p Project, category ConceptCategory, cardID string, slot int, fn func(ConceptSlot) ConceptSlot) (Project, error) {
	return withCard(p, category, cardID, func(card ConceptCard) (ConceptCard, error) {
		if slot < 0 || slot >= len(card.Slots) {
			return card, fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
		}
		slots := slices.Clone(card.Slots)
		slots[slot] = fn(slots[slot])
		card.Slots = slots
		return card, nil
	})
}

func withCard(p Project, category ConceptCategory, cardID string, fn func(ConceptCard) (ConceptCard, error)) (Project, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return p, err
	}
	cards := p.ConceptArt.Cards(category)
	i := slices.IndexFunc(cards, func(c ConceptCard) bool { return c.ID == cardID })
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	card, err := fn(cards[i])
	if err != nil {
		return p, err
	}
	cards = slices.Clone(cards)
	cards[i] = card
	p.ConceptArt = p.ConceptArt.withCards(category, cards)
	return p, nil
}
