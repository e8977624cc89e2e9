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

type CommentRepository struct {
	db *pgxpool.Pool
}

func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByQuestion 按时间正序，带作者与反应数
func (r *CommentRepository) ListByQuestion(ctx context.Context, questionID, viewerID uuid.UUID) ([]model.CommentView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.question_id, c.user_id, c.content, c.created_at,
		       p.id, p.name, p.email,
		       COUNT(r.id) FILTER (WHERE r.reaction_type = 'like'),
		       COUNT(r.id) FILTER (WHERE r.reaction_type = 'dislike'),
		       MAX(r.reaction_type) FILTER (WHERE r.user_id = $2)
		FROM comments c
		JOIN profiles p ON p.id = c.user_id
		LEFT JOIN comment_reactions r ON r.comment_id = c.id
		WHERE c.question_id = $1
		GROUP BY c.id, p.id
		ORDER BY c.created_at ASC
	`, questionID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CommentView, error) {
		var v model.CommentView
		err := row.Scan(&v.ID, &v.QuestionID, &v.UserID, &v.Content, &v.CreatedAt,
			&v.Author.ID, &v.Author.Name, &v.Author.Email,
			&v.Reactions.LikesCount, &v.Reactions.DislikesCount, &v.Reactions.UserReaction)
		return v, err
	})
}

// Create 写入评论并发出 comment.created（触发通知）与变更事件
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)`, c.QuestionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO comments (question_id, user_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, c.QuestionID, c.UserID, c.Content).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		return enqueue(ctx, tx,
			changeEvent(ctx, "comments", mqcontracts.ChangeInsert, c.ID.String(), map[string]string{
				"question_id": c.QuestionID.String(),
				"user_id":     c.UserID.String(),
			}),
			OutboxEvent{
				AggregateType: "comments",
				AggregateID:   c.ID.String(),
				RoutingKey:    mqcontracts.RoutingCommentCreated,
				Payload: mqcontracts.CommentCreatedPayload{
					Meta:       NewMeta(ctx),
					CommentID:  c.ID.String(),
					QuestionID: c.QuestionID.String(),
					ActorID:    c.UserID.String(),
					Content:    c.Content,
				},
			},
		)
	})
}
