package forum

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
)

type fakeQuestions struct {
	rows []*model.Question
}

func (f *fakeQuestions) List(ctx context.Context, limit int) ([]model.QuestionSummary, error) {
	var out []model.QuestionSummary
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, model.QuestionSummary{Question: *f.rows[i]})
	}
	return out, nil
}

func (f *fakeQuestions) Create(ctx context.Context, q *model.Question) error {
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	f.rows = append(f.rows, q)
	return nil
}

func (f *fakeQuestions) Get(ctx context.Context, id, viewerID uuid.UUID) (*model.QuestionDetail, error) {
	for _, q := range f.rows {
		if q.ID == id {
			return &model.QuestionDetail{Question: *q}, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeComments struct {
	questions *fakeQuestions
	rows      []*model.Comment
}

func (f *fakeComments) ListByQuestion(ctx context.Context, questionID, viewerID uuid.UUID) ([]model.CommentView, error) {
	var out []model.CommentView
	for _, c := range f.rows {
		if c.QuestionID == questionID {
			out = append(out, model.CommentView{Comment: *c})
		}
	}
	return out, nil
}

func (f *fakeComments) Create(ctx context.Context, c *model.Comment) error {
	if _, err := f.questions.Get(ctx, c.QuestionID, uuid.Nil); err != nil {
		return err
	}
	c.ID = uuid.New()
	f.rows = append(f.rows, c)
	return nil
}

func newService() *Service {
	q := &fakeQuestions{}
	return NewService(q, &fakeComments{questions: q}, zap.NewNop())
}

func TestAskAndComment(t *testing.T) {
	s := newService()
	ctx := context.Background()
	author, reader := uuid.New(), uuid.New()

	q, err := s.Ask(ctx, author, "  Sleep schedule  ", "How many hours?")
	if err != nil {
		t.Fatal(err)
	}
	if q.Title != "Sleep schedule" {
		t.Fatalf("title not trimmed: %q", q.Title)
	}
	if _, err := s.AddComment(ctx, q.ID, reader, "Eight"); err != nil {
		t.Fatal(err)
	}

	detail, comments, err := s.Question(ctx, q.ID, reader)
	if err != nil {
		t.Fatal(err)
	}
	if detail.ID != q.ID || len(comments) != 1 || comments[0].Content != "Eight" {
		t.Fatalf("unexpected detail %+v comments %+v", detail, comments)
	}

	list, err := s.ListQuestions(ctx, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListQuestions = (%v, %v)", list, err)
	}
}

func TestForumErrors(t *testing.T) {
	s := newService()
	ctx := context.Background()
	user := uuid.New()

	tests := []struct {
		name string
		run  func() error
		want int
	}{
		{"empty title", func() error { _, err := s.Ask(ctx, user, " ", "body"); return err }, http.StatusBadRequest},
		{"empty comment", func() error { _, err := s.AddComment(ctx, uuid.New(), user, ""); return err }, http.StatusBadRequest},
		{"comment on missing question", func() error { _, err := s.AddComment(ctx, uuid.New(), user, "hi"); return err }, http.StatusNotFound},
		{"missing question", func() error { _, _, err := s.Question(ctx, uuid.New(), user); return err }, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.From(tt.run()).Kind.Status(); got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
