package reaction

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
)

type rowKey struct {
	subject uuid.UUID
	user    uuid.UUID
}

// memStore 按 UNIQUE(subject, user) 语义保存反应
type memStore struct {
	subjects map[uuid.UUID]bool
	rows     map[rowKey]string
}

func newMemStore(subjects ...uuid.UUID) *memStore {
	m := &memStore{subjects: map[uuid.UUID]bool{}, rows: map[rowKey]string{}}
	for _, s := range subjects {
		m.subjects[s] = true
	}
	return m
}

func (m *memStore) Toggle(ctx context.Context, subjectType string, subjectID, userID uuid.UUID, reactionType string) (*repository.ToggleResult, error) {
	if !m.subjects[subjectID] {
		return nil, repository.ErrNotFound
	}
	key := rowKey{subjectID, userID}
	var existing *string
	if cur, ok := m.rows[key]; ok {
		existing = &cur
	}
	action := model.ToggleAction(existing, reactionType)
	switch action {
	case model.ActionRemoved:
		delete(m.rows, key)
	default:
		m.rows[key] = reactionType
	}
	return &repository.ToggleResult{Action: action, QuestionID: subjectID}, nil
}

func (m *memStore) Counts(ctx context.Context, subjectType string, subjectID, userID uuid.UUID) (model.ReactionCounts, error) {
	var c model.ReactionCounts
	for k, v := range m.rows {
		if k.subject != subjectID {
			continue
		}
		if v == model.ReactionLike {
			c.LikesCount++
		} else {
			c.DislikesCount++
		}
		if k.user == userID {
			v := v
			c.UserReaction = &v
		}
	}
	return c, nil
}

func (m *memStore) rowsFor(subject, user uuid.UUID) int {
	n := 0
	for k := range m.rows {
		if k.subject == subject && k.user == user {
			n++
		}
	}
	return n
}

func TestToggleTwiceRestoresCounts(t *testing.T) {
	q, alice, bob := uuid.New(), uuid.New(), uuid.New()
	store := newMemStore(q)
	s := NewService(store, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Toggle(ctx, model.SubjectQuestion, q, bob, model.ReactionLike); err != nil {
		t.Fatal(err)
	}
	before, err := s.State(ctx, model.SubjectQuestion, q, alice)
	if err != nil {
		t.Fatal(err)
	}

	for _, reaction := range []string{model.ReactionLike, model.ReactionDislike} {
		first, err := s.Toggle(ctx, model.SubjectQuestion, q, alice, reaction)
		if err != nil {
			t.Fatal(err)
		}
		if first.Action != model.ActionAdded || first.UserReaction == nil || *first.UserReaction != reaction {
			t.Fatalf("first %s toggle: unexpected state %+v", reaction, first)
		}

		second, err := s.Toggle(ctx, model.SubjectQuestion, q, alice, reaction)
		if err != nil {
			t.Fatal(err)
		}
		if second.Action != model.ActionRemoved {
			t.Fatalf("second %s toggle should remove, got %q", reaction, second.Action)
		}
		if second.LikesCount != before.LikesCount || second.DislikesCount != before.DislikesCount || second.UserReaction != nil {
			t.Fatalf("counts not restored: before %+v after %+v", before.ReactionCounts, second.ReactionCounts)
		}
	}
}

func TestSwitchKeepsSingleRow(t *testing.T) {
	c, user := uuid.New(), uuid.New()
	store := newMemStore(c)
	s := NewService(store, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Toggle(ctx, model.SubjectComment, c, user, model.ReactionLike); err != nil {
		t.Fatal(err)
	}
	state, err := s.Toggle(ctx, model.SubjectComment, c, user, model.ReactionDislike)
	if err != nil {
		t.Fatal(err)
	}

	if state.Action != model.ActionSwitched {
		t.Fatalf("expected switched, got %q", state.Action)
	}
	if state.LikesCount != 0 || state.DislikesCount != 1 {
		t.Fatalf("unexpected counts %+v", state.ReactionCounts)
	}
	if n := store.rowsFor(c, user); n != 1 {
		t.Fatalf("expected exactly one row for (subject, user), got %d", n)
	}
}

func TestToggleErrors(t *testing.T) {
	s := NewService(newMemStore(), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name     string
		subject  string
		reaction string
		status   int
	}{
		{"bad subject", "task", model.ReactionLike, http.StatusBadRequest},
		{"bad reaction", model.SubjectQuestion, "love", http.StatusBadRequest},
		{"missing reaction", model.SubjectQuestion, "", http.StatusBadRequest},
		{"unknown subject", model.SubjectQuestion, model.ReactionLike, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Toggle(ctx, tt.subject, uuid.New(), uuid.New(), tt.reaction)
			if got := apperr.From(err).Kind.Status(); got != tt.status {
				t.Fatalf("status = %d, want %d (err=%v)", got, tt.status, err)
			}
		})
	}
}
