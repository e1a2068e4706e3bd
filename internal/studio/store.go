// Package studio owns the live project: a mutex-guarded storyboard.Project,
// the editor's current selection, and the listeners told about each change.
package studio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tbstudio/storyboard-agent/internal/logging"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// Selection is the sequence and scene the editor is looking at.
type Selection struct {
	SequenceID string `json:"sequenceId"`
	SceneID    string `json:"sceneId"`
}

// ChangeFunc receives every new project tree. It runs while the store lock
// is held and must not call back into the Store.
type ChangeFunc func(storyboard.Project)

type Option func(*Store)

// WithClock overrides the time source used for updatedAt and createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

type Store struct {
	mu        sync.Mutex
	project   storyboard.Project
	selection Selection
	listeners []ChangeFunc
	now       func() time.Time
	logger    *slog.Logger
}

func NewStore(initial storyboard.Project, opts ...Option) *Store {
	s := &Store{
		project: initial,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	s.selection = repairSelection(initial, Selection{})
	return s
}

// OnChange registers fn to run after every successful mutation.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Project returns the current tree. The value shares structure with the
// store and must be treated as read-only.
func (s *Store) Project() storyboard.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Select points the editor at a sequence and optionally a scene inside it.
// An empty sceneID selects the sequence's first scene.
func (s *Store) Select(sequenceID, sceneID string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.project.FindSequence(sequenceID)
	if !ok {
		return s.selection, storyboardNotFound(storyboard.ErrSequenceNotFound, sequenceID)
	}
	if sceneID != "" {
		if _, _, ok := seq.FindScene(sceneID); !ok {
			return s.selection, storyboardNotFound(storyboard.ErrSceneNotFound, sceneID)
		}
	}
	s.selection = repairSelection(s.project, Selection{SequenceID: sequenceID, SceneID: sceneID})
	return s.selection, nil
}

// Import validates an exported project file and, if it is well formed,
// replaces the current project with it. A rejected file leaves the store
// untouched.
func (s *Store) Import(data []byte) (storyboard.Project, error) {
	p, err := storyboard.ParseImport(data)
	if err != nil {
		return storyboard.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(p)
	s.logger.Info("project imported", "project", p.Meta.Name, "shots", p.ShotCount())
	return p, nil
}

// Reset replaces the project with a fresh default one.
func (s *Store) Reset() storyboard.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := storyboard.NewProject(s.nowMillis())
	s.commitLocked(p)
	return p
}

// apply runs fn against the current tree and commits the result unless fn
// fails.
func (s *Store) apply(fn func(storyboard.Project) (storyboard.Project, error)) (storyboard.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.project)
	if err != nil {
		return s.project, err
	}
	next.Meta.UpdatedAt = s.nowMillis()
	s.commitLocked(next)
	return next, nil
}

func (s *Store) commitLocked(p storyboard.Project) {
	s.project = p
	s.selection = repairSelection(p, s.selection)
	for _, fn := range s.listeners {
		fn(p)
	}
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// repairSelection keeps sel if it still points at existing nodes and falls
// back to the first sequence and its first scene otherwise.
func repairSelection(p storyboard.Project, sel Selection) Selection {
	seqs := p.Storyboard.Sequences
	if len(seqs) == 0 {
		return Selection{}
	}
	seq, ok := p.FindSequence(sel.SequenceID)
	if !ok {
		seq = seqs[0]
		sel = Selection{SequenceID: seq.ID}
	}
	if _, _, ok := seq.FindScene(sel.SceneID); !ok {
		sel.SceneID = ""
		if len(seq.Scenes) > 0 {
			sel.SceneID = seq.Scenes[0].ID
		}
	}
	return sel
}
