package studio

import (
	"errors"
	"fmt"

	sb "github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// ErrNoScene is returned when an operation needs the selected scene and the
// project has none.
var ErrNoScene = errors.New("no scene selected")

func storyboardNotFound(err error, id string) error {
	return fmt.Errorf("%w: %s", err, id)
}

func (s *Store) SetName(name string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.SetName(p, name), nil
	})
}

func (s *Store) SetAspectRatio(ratio string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.SetAspectRatio(p, ratio)
	})
}

// UpdateMeta changes name and aspect ratio in a single commit.
func (s *Store) UpdateMeta(upd sb.MetaUpdate) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.UpdateMeta(p, upd)
	})
}

func (s *Store) AddConceptCard(category sb.ConceptCategory) (sb.ConceptCard, error) {
	var card sb.ConceptCard
	_, err := s.apply(func(p sb.Project) (sb.Project, error) {
		var err error
		p, card, err = sb.AddConceptCard(p, category, s.nowMillis())
		return p, err
	})
	return card, err
}

func (s *Store) UpdateConceptCard(category sb.ConceptCategory, cardID string, upd sb.ConceptCardUpdate) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.UpdateConceptCard(p, category, cardID, upd)
	})
}

func (s *Store) DeleteConceptCard(category sb.ConceptCategory, cardID string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.DeleteConceptCard(p, category, cardID)
	})
}

func (s *Store) SetConceptSlotImage(category sb.ConceptCategory, cardID string, slot int, img *sb.ImageData) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.SetConceptSlotImage(p, category, cardID, slot, img)
	})
}

func (s *Store) SetConceptSlotDescription(category sb.ConceptCategory, cardID string, slot int, description string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.SetConceptSlotDescription(p, category, cardID, slot, description)
	})
}

func (s *Store) AddSequence() (sb.Sequence, error) {
	var seq sb.Sequence
	_, err := s.apply(func(p sb.Project) (sb.Project, error) {
		p, seq = sb.AddSequence(p)
		return p, nil
	})
	return seq, err
}

func (s *Store) UpdateSequence(seqID string, upd sb.SequenceUpdate) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.UpdateSequence(p, seqID, upd)
	})
}

func (s *Store) DeleteSequence(seqID string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.DeleteSequence(p, seqID)
	})
}

func (s *Store) ReorderSequences(ids []string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.ReorderSequences(p, ids)
	})
}

func (s *Store) AddScene(seqID string) (sb.Scene, error) {
	var scene sb.Scene
	_, err := s.apply(func(p sb.Project) (sb.Project, error) {
		var err error
		p, scene, err = sb.AddScene(p, seqID)
		return p, err
	})
	return scene, err
}

func (s *Store) UpdateScene(seqID, sceneID string, upd sb.SceneUpdate) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.UpdateScene(p, seqID, sceneID, upd)
	})
}

func (s *Store) DeleteScene(seqID, sceneID string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.DeleteScene(p, seqID, sceneID)
	})
}

func (s *Store) ReorderScenes(seqID string, ids []string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.ReorderScenes(p, seqID, ids)
	})
}

func (s *Store) AddShot(seqID, sceneID string) (sb.Shot, error) {
	var shot sb.Shot
	_, err := s.apply(func(p sb.Project) (sb.Project, error) {
		var err error
		p, shot, err = sb.AddShot(p, seqID, sceneID)
		return p, err
	})
	return shot, err
}

func (s *Store) UpdateShot(seqID, sceneID, shotID string, upd sb.ShotUpdate) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.UpdateShot(p, seqID, sceneID, shotID, upd)
	})
}

func (s *Store) DeleteShot(seqID, sceneID, shotID string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.DeleteShot(p, seqID, sceneID, shotID)
	})
}

func (s *Store) ReorderShots(seqID, sceneID string, ids []string) (sb.Project, error) {
	return s.apply(func(p sb.Project) (sb.Project, error) {
		return sb.ReorderShots(p, seqID, sceneID, ids)
	})
}

// AddImageShot appends a shot carrying img to the selected scene.
func (s *Store) AddImageShot(img sb.ImageData) (sb.Shot, error) {
	var shot sb.Shot
	_, err := s.apply(func(p sb.Project) (sb.Project, error) {
		sel := s.selection
		if sel.SequenceID == "" || sel.SceneID == "" {
			return p, ErrNoScene
		}
		next, added, err := sb.AddShot(p, sel.SequenceID, sel.SceneID)
		if err != nil {
			return p, err
		}
		next, err = sb.UpdateShot(next, sel.SequenceID, sel.SceneID, added.ID, sb.ShotUpdate{Image: &img})
		if err != nil {
			return p, err
		}
		added.Image = &img
		shot = added
		return next, nil
	})
	return shot, err
}
