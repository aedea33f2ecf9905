package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaboard/pkg/types"
)

func TestStore_CreateQuestionAppearsInList(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("What is TCP?", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "What is TCP?", q.Text)
	assert.Equal(t, "alice", q.Author)
	assert.Empty(t, q.Replies)
	assert.False(t, q.CreatedAt.IsZero())

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, q.ID, list[0].ID)
}

func TestStore_IDsAreUnique(t *testing.T) {
	s := New()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		q, err := s.CreateQuestion(fmt.Sprintf("question %d", i), "")
		require.NoError(t, err)
		assert.False(t, seen[q.ID], "id %s issued twice", q.ID)
		seen[q.ID] = true
	}
}

func TestStore_ListInsertionOrder(t *testing.T) {
	s := New()

	first, err := s.CreateQuestion("first", "")
	require.NoError(t, err)
	second, err := s.CreateQuestion("second", "")
	require.NoError(t, err)
	third, err := s.CreateQuestion("third", "")
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID},
		[]string{list[0].ID, list[1].ID, list[2].ID})
}

func TestStore_CreateQuestionValidation(t *testing.T) {
	s := New()

	_, err := s.CreateQuestion("   ", "alice")
	assert.ErrorIs(t, err, types.ErrEmptyText)

	q, err := s.CreateQuestion("anonymous question", "")
	require.NoError(t, err)
	assert.Equal(t, types.AnonymousAuthor, q.Author)
}

func TestStore_AppendReply(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("What is TCP?", "alice")
	require.NoError(t, err)

	r, err := s.AppendReply(q.ID, "A transport protocol", "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "A transport protocol", r.Text)
	assert.Equal(t, "bob", r.Author)

	list := s.List()
	require.Len(t, list, 1)
	require.Len(t, list[0].Replies, 1)
	assert.Equal(t, r.ID, list[0].Replies[0].ID)
}

func TestStore_AppendReplyUnknownQuestion(t *testing.T) {
	s := New()

	_, err := s.AppendReply("no-such-id", "answer", "bob")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestStore_RoundTripCreationOrder(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("What is TCP?", "alice")
	require.NoError(t, err)
	r1, err := s.AppendReply(q.ID, "A transport protocol", "bob")
	require.NoError(t, err)
	r2, err := s.AppendReply(q.ID, "Reliable, ordered, connection-oriented", "carol")
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, q.ID, got.ID)
	assert.Equal(t, q.Text, got.Text)
	require.Len(t, got.Replies, 2)
	assert.Equal(t, r1.ID, got.Replies[0].ID)
	assert.Equal(t, r2.ID, got.Replies[1].ID)
	assert.Equal(t, r1.Text, got.Replies[0].Text)
}

func TestStore_DeleteQuestionCascades(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("doomed", "")
	require.NoError(t, err)
	_, err = s.AppendReply(q.ID, "reply", "")
	require.NoError(t, err)

	deleted, err := s.DeleteQuestion(q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, deleted.ID)
	assert.Empty(t, s.List())

	// Second delete must report not found.
	_, err = s.DeleteQuestion(q.ID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	// Replies died with the question.
	_, err = s.AppendReply(q.ID, "too late", "")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestStore_DeleteReply(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("q", "")
	require.NoError(t, err)
	r, err := s.AppendReply(q.ID, "r", "")
	require.NoError(t, err)

	deleted, err := s.DeleteReply(q.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, deleted.ID)

	_, err = s.DeleteReply(q.ID, r.ID)
	assert.ErrorIs(t, err, ErrReplyNotFound)

	_, err = s.DeleteReply("no-such-question", r.ID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestStore_Clear(t *testing.T) {
	s := New()

	for i := 0; i < 5; i++ {
		_, err := s.CreateQuestion(fmt.Sprintf("q%d", i), "")
		require.NoError(t, err)
	}
	require.Equal(t, 5, s.Count())

	s.Clear()
	assert.Zero(t, s.Count())
	assert.Empty(t, s.List())
}

func TestStore_ListReturnsCopies(t *testing.T) {
	s := New()

	q, err := s.CreateQuestion("original", "")
	require.NoError(t, err)

	list := s.List()
	list[0].Text = "mutated"
	list[0].Replies = append(list[0].Replies, &types.Reply{ID: "fake"})

	fresh := s.List()
	assert.Equal(t, "original", fresh[0].Text)
	assert.Empty(t, fresh[0].Replies)
	_ = q
}
