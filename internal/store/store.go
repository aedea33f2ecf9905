package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"qaboard/pkg/types"
)

// Store holds all questions and their replies in memory for the lifetime
// of the process. IDs are UUIDs and are never reused.
//
// List returns questions in insertion (creation) order. That ordering is
// a named contract of this package, not an accident of the backing slice.
type Store struct {
	mu        sync.RWMutex
	questions []*types.Question
	byID      map[string]*types.Question
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byID: make(map[string]*types.Question),
	}
}

// List returns a snapshot of all questions in creation order. The
// returned questions are copies; mutating them does not affect the store.
func (s *Store) List() []*types.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = cloneQuestion(q)
	}
	return out
}

// CreateQuestion validates and stores a new question.
func (s *Store) CreateQuestion(text, author string) (*types.Question, error) {
	text, err := types.NormalizeText(text)
	if err != nil {
		return nil, err
	}

	q := &types.Question{
		ID:        uuid.New().String(),
		Text:      text,
		Author:    types.NormalizeAuthor(author),
		CreatedAt: time.Now().UTC(),
		Replies:   []*types.Reply{},
	}

	s.mu.Lock()
	s.questions = append(s.questions, q)
	s.byID[q.ID] = q
	s.mu.Unlock()

	return cloneQuestion(q), nil
}

// AppendReply validates and appends a reply to an existing question.
func (s *Store) AppendReply(questionID, text, author string) (*types.Reply, error) {
	text, err := types.NormalizeText(text)
	if err != nil {
		return nil, err
	}

	r := &types.Reply{
		ID:        uuid.New().String(),
		Text:      text,
		Author:    types.NormalizeAuthor(author),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.byID[questionID]
	if !exists {
		return nil, ErrQuestionNotFound
	}
	q.Replies = append(q.Replies, r)

	return cloneReply(r), nil
}

// DeleteQuestion removes a question and all of its replies atomically and
// returns the removed question.
func (s *Store) DeleteQuestion(id string) (*types.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.byID[id]
	if !exists {
		return nil, ErrQuestionNotFound
	}

	delete(s.byID, id)
	for i, candidate := range s.questions {
		if candidate.ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			break
		}
	}

	return cloneQuestion(q), nil
}

// DeleteReply removes a single reply from a question and returns it.
func (s *Store) DeleteReply(questionID, replyID string) (*types.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.byID[questionID]
	if !exists {
		return nil, ErrQuestionNotFound
	}

	for i, r := range q.Replies {
		if r.ID == replyID {
			q.Replies = append(q.Replies[:i], q.Replies[i+1:]...)
			return cloneReply(r), nil
		}
	}

	return nil, ErrReplyNotFound
}

// Clear removes every question and reply.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions = nil
	s.byID = make(map[string]*types.Question)
}

// Count returns the number of stored questions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

func cloneQuestion(q *types.Question) *types.Question {
	replies := make([]*types.Reply, len(q.Replies))
	for i, r := range q.Replies {
		replies[i] = cloneReply(r)
	}
	clone := *q
	clone.Replies = replies
	return &clone
}

func cloneReply(r *types.Reply) *types.Reply {
	clone := *r
	return &clone
}
