package storyboard

import (
	"fmt"
	"slices"
)

// MetaUpdate changes the project name and aspect ratio; nil fields are kept.
type MetaUpdate struct {
	Name        *string
	AspectRatio *string
}

type SequenceUpdate struct {
	Name *string `json:"name,omitempty"`
}

type SceneUpdate struct {
	Name *string `json:"name,omitempty"`
}

// ShotUpdate changes the editable fields of a shot. Image replaces the
// current image, ClearImage removes it.
type ShotUpdate struct {
	Image      *ImageData
	ClearImage bool
	Time       *TimeCode
	Action     *string
	Dialogue   *string
}

func SetName(p Project, name string) Project {
	p.Meta.Name = name
	return p
}

func SetAspectRatio(p Project, ratio string) (Project, error) {
	r, err := NormalizeAspectRatio(ratio)
	if err != nil {
		return p, err
	}
	p.Meta.AspectRatio = r
	return p, nil
}

// UpdateMeta applies upd as a whole: an invalid aspect ratio leaves the name
// unchanged too.
func UpdateMeta(p Project, upd MetaUpdate) (Project, error) {
	if upd.AspectRatio != nil {
		var err error
		if p, err = SetAspectRatio(p, *upd.AspectRatio); err != nil {
			return p, err
		}
	}
	if upd.Name != nil {
		p = SetName(p, *upd.Name)
	}
	return p, nil
}

func AddSequence(p Project) (Project, Sequence) {
	seqs := p.Storyboard.Sequences
	seq := newSequence(len(seqs))
	p.Storyboard.Sequences = append(slices.Clip(seqs), seq)
	return p, seq
}

func UpdateSequence(p Project, seqID string, upd SequenceUpdate) (Project, error) {
	return withSequence(p, seqID, func(seq Sequence) (Sequence, error) {
		if upd.Name != nil {
			seq.Name = *upd.Name
		}
		return seq, nil
	})
}

func DeleteSequence(p Project, seqID string) (Project, error) {
	i := slices.IndexFunc(p.Storyboard.Sequences, func(s Sequence) bool { return s.ID == seqID })
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrSequenceNotFound, seqID)
	}
	p.Storyboard.Sequences = renumberSequences(slices.Delete(slices.Clone(p.Storyboard.Sequences), i, i+1))
	return p, nil
}

func ReorderSequences(p Project, ids []string) (Project, error) {
	seqs, err := permute(p.Storyboard.Sequences, ids, func(s Sequence) string { return s.ID })
	if err != nil {
		return p, err
	}
	p.Storyboard.Sequences = renumberSequences(seqs)
	return p, nil
}

func AddScene(p Project, seqID string) (Project, Scene, error) {
	var added Scene
	p, err := withSequence(p, seqID, func(seq Sequence) (Sequence, error) {
		added = newScene(len(seq.Scenes))
		seq.Scenes = append(slices.Clip(seq.Scenes), added)
		return seq, nil
	})
	return p, added, err
}

func UpdateScene(p Project, seqID, sceneID string, upd SceneUpdate) (Project, error) {
	return withScene(p, seqID, sceneID, func(sc Scene) (Scene, error) {
		if upd.Name != nil {
			sc.Name = *upd.Name
		}
		return sc, nil
	})
}

// DeleteScene removes a scene with its shots. Later scenes move up one
// index, so their shots get new cut numbers.
func DeleteScene(p Project, seqID, sceneID string) (Project, error) {
	return withSequence(p, seqID, func(seq Sequence) (Sequence, error) {
		_, i, ok := seq.FindScene(sceneID)
		if !ok {
			return seq, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
		}
		seq.Scenes = renumberScenes(slices.Delete(slices.Clone(seq.Scenes), i, i+1))
		return seq, nil
	})
}

func ReorderScenes(p Project, seqID string, ids []string) (Project, error) {
	return withSequence(p, seqID, func(seq Sequence) (Sequence, error) {
		scenes, err := permute(seq.Scenes, ids, func(s Scene) string { return s.ID })
		if err != nil {
			return seq, err
		}
		seq.Scenes = renumberScenes(scenes)
		return seq, nil
	})
}

func AddShot(p Project, seqID, sceneID string) (Project, Shot, error) {
	var added Shot
	p, err := withScene(p, seqID, sceneID, func(sc Scene) (Scene, error) {
		added = newShot(sc.Order, len(sc.Shots))
		sc.Shots = append(slices.Clip(sc.Shots), added)
		return sc, nil
	})
	return p, added, err
}

func UpdateShot(p Project, seqID, sceneID, shotID string, upd ShotUpdate) (Project, error) {
	frameRate := p.Meta.FrameRate
	return withScene(p, seqID, sceneID, func(sc Scene) (Scene, error) {
		i := slices.IndexFunc(sc.Shots, func(s Shot) bool { return s.ID == shotID })
		if i < 0 {
			return sc, fmt.Errorf("%w: %s", ErrShotNotFound, shotID)
		}
		shot := sc.Shots[i]
		switch {
		case upd.ClearImage:
			shot.Image = nil
		case upd.Image != nil:
			img := *upd.Image
			shot.Image = &img
		}
		if upd.Time != nil {
			shot.Time = Normalize(*upd.Time, frameRate)
		}
		if upd.Action != nil {
			shot.Action = *upd.Action
		}
		if upd.Dialogue != nil {
			shot.Dialogue = *upd.Dialogue
		}
		sc.Shots = slices.Clone(sc.Shots)
		sc.Shots[i] = shot
		return sc, nil
	})
}

func DeleteShot(p Project, seqID, sceneID, shotID string) (Project, error) {
	return withScene(p, seqID, sceneID, func(sc Scene) (Scene, error) {
		i := slices.IndexFunc(sc.Shots, func(s Shot) bool { return s.ID == shotID })
		if i < 0 {
			return sc, fmt.Errorf("%w: %s", ErrShotNotFound, shotID)
		}
		sc.Shots = slices.Delete(slices.Clone(sc.Shots), i, i+1)
		return sc, nil
	})
}

func ReorderShots(p Project, seqID, sceneID string, ids []string) (Project, error) {
	return withScene(p, seqID, sceneID, func(sc Scene) (Scene, error) {
		shots, err := permute(sc.Shots, ids, func(s Shot) string { return s.ID })
		if err != nil {
			return sc, err
		}
		sc.Shots = shots
		return sc, nil
	})
}

// Renumber rewrites every order field and cut number from tree position and
// clamps every shot time into range for the project frame rate.
func Renumber(p Project) Project {
	p.Storyboard.Sequences = renumberSequences(slices.Clone(p.Storyboard.Sequences))
	// renumberSequences left fresh scene and shot slices, safe to edit
	for _, seq := range p.Storyboard.Sequences {
		for _, sc := range seq.Scenes {
			for k := range sc.Shots {
				sc.Shots[k].Time = Normalize(sc.Shots[k].Time, p.Meta.FrameRate)
			}
		}
	}
	return p
}

func withSequence(p Project, seqID string, fn func(Sequence) (Sequence, error)) (Project, error) {
	i := slices.IndexFunc(p.Storyboard.Sequences, func(s Sequence) bool { return s.ID == seqID })
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrSequenceNotFound, seqID)
	}
	seq, err := fn(p.Storyboard.Sequences[i])
	if err != nil {
		return p, err
	}
	seqs := slices.Clone(p.Storyboard.Sequences)
	seqs[i] = seq
	p.Storyboard.Sequences = seqs
	return p, nil
}

// withScene applies fn to one scene and renumbers its shots afterwards.
func withScene(p Project, seqID, sceneID string, fn func(Scene) (Scene, error)) (Project, error) {
	return withSequence(p, seqID, func(seq Sequence) (Sequence, error) {
		sc, i, ok := seq.FindScene(sceneID)
		if !ok {
			return seq, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
		}
		sc, err := fn(sc)
		if err != nil {
			return seq, err
		}
		sc.Order = i
		sc.Shots = renumberShots(sc.Shots, i)
		scenes := slices.Clone(seq.Scenes)
		scenes[i] = sc
		seq.Scenes = scenes
		return seq, nil
	})
}

// renumberSequences updates seqs in place; callers pass a private copy.
func renumberSequences(seqs []Sequence) []Sequence {
	for i := range seqs {
		seqs[i].Order = i
		seqs[i].Scenes = renumberScenes(slices.Clone(seqs[i].Scenes))
	}
	return seqs
}

// renumberScenes updates scenes in place; callers pass a private copy.
func renumberScenes(scenes []Scene) []Scene {
	for i := range scenes {
		scenes[i].Order = i
		scenes[i].Shots = renumberShots(scenes[i].Shots, i)
	}
	return scenes
}

func renumberShots(shots []Shot, sceneIndex int) []Shot {
	cuts := RecalculateCutNumbers(sceneIndex, len(shots))
	out := make([]Shot, len(shots))
	for i, shot := range shots {
		shot.Order = i
		shot.CutNumber = cuts[i]
		out[i] = shot
	}
	return out
}

// permute returns items arranged in the order of ids. ids must name every
// item exactly once.
func permute[T any](items []T, ids []string, idOf func(T) string) ([]T, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("%w: got %d ids for %d items", ErrInvalidReorder, len(ids), len(items))
	}
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[idOf(it)] = it
	}
	out := make([]T, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown id %s", ErrInvalidReorder, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidReorder, id)
		}
		seen[id] = true
		out = append(out, it)
	}
	return out, nil
}
