// Package fill is the respondent side of a questionnaire: a Session keeps the
// local answers, their versions and the rendered presentation, and talks to
// the answer store through a Backend.
package fill

import (
	"context"
	"sort"
	"sync"

	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/questionnaire"
	"github.com/mbolis/vsaq/store"
	"github.com/pkg/errors"
)

var (
	ErrUnresolvedConflicts = errors.New("answers changed elsewhere: reload before submitting")
	ErrConflicted          = errors.New("answer changed elsewhere: reload before saving it again")
)

// Backend is the answer store as seen by one instance's respondent.
type Backend interface {
	Load(ctx context.Context) (model.Fill, error)
	Save(ctx context.Context, questionID, value string, version int) (model.SaveResult, error)
	Submit(ctx context.Context) error
}

type Session struct {
	backend Backend

	mu        sync.Mutex
	fill      model.Fill
	doc       *questionnaire.Document
	pres      *questionnaire.Presentation
	values    questionnaire.Answers
	versions  map[string]int
	conflicts map[string]model.SaveResult

	fieldsMu sync.Mutex
	fields   map[string]*sync.Mutex
}

// Open loads the instance from backend and renders it.
func Open(ctx context.Context, backend Backend) (*Session, error) {
	s := &Session{
		backend: backend,
		fields:  map[string]*sync.Mutex{},
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces every local value and version with the stored ones and
// forgets all conflicts.
func (s *Session) Reload(ctx context.Context) error {
	fill, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	doc, err := questionnaire.Parse([]byte(fill.Content))
	if err != nil {
		return errors.Wrap(err, "questionnaire content")
	}

	values := questionnaire.Answers{}
	versions := map[string]int{}
	for id, a := range fill.Answers {
		values[id] = a.Value
		versions[id] = a.Version
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fill = fill
	s.doc = doc
	s.values = values
	s.versions = versions
	s.conflicts = map[string]model.SaveResult{}
	s.pres = questionnaire.Render(doc, values)
	return nil
}

func (s *Session) field(id string) *sync.Mutex {
	s.fieldsMu.Lock()
	defer s.fieldsMu.Unlock()
	m, ok := s.fields[id]
	if !ok {
		m = &sync.Mutex{}
		s.fields[id] = m
	}
	return m
}

// Set records value for questionID locally, updates the presentation and
// saves it. Saves of the same field never overlap, so each one carries the
// version the previous one produced. The local version only moves on an
// accepted save. Once a save of a field comes back as a conflict, the field is
// refused with ErrConflicted, untouched, until the next Reload.
func (s *Session) Set(ctx context.Context, questionID, value string) (model.SaveResult, error) {
	m := s.field(questionID)
	m.Lock()
	defer m.Unlock()

	s.mu.Lock()
	if s.fill.IsLocked {
		s.mu.Unlock()
		return model.SaveResult{}, store.ErrLocked
	}
	if _, ok := s.conflicts[questionID]; ok {
		s.mu.Unlock()
		return model.SaveResult{}, errors.Wrap(ErrConflicted, questionID)
	}
	s.values[questionID] = value
	s.pres.Recompute(s.values)
	version := s.versions[questionID]
	s.mu.Unlock()

	res, err := s.backend.Save(ctx, questionID, value, version)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			s.mu.Lock()
			s.fill.IsLocked = true
			s.mu.Unlock()
		}
		return res, errors.Wrapf(err, "save %s", questionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch res.Outcome {
	case model.Accepted:
		s.versions[questionID] = res.Version
	case model.Conflict:
		s.conflicts[questionID] = res
	}
	return res, nil
}

// Submit locks the instance. It is refused while any field is in conflict.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	conflicts := len(s.conflicts)
	s.mu.Unlock()
	if conflicts > 0 {
		return ErrUnresolvedConflicts
	}

	err := s.backend.Submit(ctx)
	if err != nil && !errors.Is(err, store.ErrAlreadySubmitted) {
		return err
	}

	s.mu.Lock()
	s.fill.IsLocked = true
	s.mu.Unlock()
	return err
}

// Conflicts lists the conflicted question ids in order.
func (s *Session) Conflicts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.conflicts))
	for id := range s.conflicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) Value(questionID string) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[questionID], s.versions[questionID]
}

func (s *Session) Progress() questionnaire.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pres.Progress()
}

func (s *Session) Entries() []questionnaire.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pres.Entries()
}

func (s *Session) Visible(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pres.VisibleID(questionID)
}

func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fill.IsLocked
}

// Title is the questionnaire name and description.
func (s *Session) Title() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fill.Name, s.fill.Description
}
