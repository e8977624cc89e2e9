package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
)

type QuestionRepository struct {
	db *pgxpool.Pool
}

func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// List 最新的问题在前，带作者和评论数
func (r *QuestionRepository) List(ctx context.Context, limit int) ([]model.QuestionSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT q.id, q.user_id, q.title, q.content, q.created_at,
		       p.id, p.name, p.email,
		       (SELECT COUNT(*) FROM comments c WHERE c.question_id = q.id)
		FROM questions q
		JOIN profiles p ON p.id = q.user_id
		ORDER BY q.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.QuestionSummary, error) {
		var s model.QuestionSummary
		err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Content, &s.CreatedAt,
			&s.Author.ID, &s.Author.Name, &s.Author.Email, &s.CommentsCount)
		return s, err
	})
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO questions (user_id, title, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, q.UserID, q.Title, q.Content).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return enqueue(ctx, tx, changeEvent(ctx, "questions", mqcontracts.ChangeInsert, q.ID.String(), map[string]string{
			"user_id": q.UserID.String(),
		}))
	})
}

// Get 问题详情，反应数按 viewer 计算
func (r *QuestionRepository) Get(ctx context.Context, id, viewerID uuid.UUID) (*model.QuestionDetail, error) {
	var d model.QuestionDetail
	err := r.db.QueryRow(ctx, `
		SELECT q.id, q.user_id, q.title, q.content, q.created_at,
		       p.id, p.name, p.email,
		       COUNT(r.id) FILTER (WHERE r.reaction_type = 'like'),
		       COUNT(r.id) FILTER (WHERE r.reaction_type = 'dislike'),
		       MAX(r.reaction_type) FILTER (WHERE r.user_id = $2)
		FROM questions q
		JOIN profiles p ON p.id = q.user_id
		LEFT JOIN question_reactions r ON r.question_id = q.id
		WHERE q.id = $1
		GROUP BY q.id, p.id
	`, id, viewerID).Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &d.CreatedAt,
		&d.Author.ID, &d.Author.Name, &d.Author.Email,
		&d.Reactions.LikesCount, &d.Reactions.DislikesCount, &d.Reactions.UserReaction)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
