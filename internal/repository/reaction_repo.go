package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
	"carecircle/pkg/otel"
)

type reactionTable struct {
	table      string
	subjectCol string
	// 返回 (question_id, owner_id)
	parentSQL string
}

var reactionTables = map[string]reactionTable{
	model.SubjectQuestion: {
		table:      "question_reactions",
		subjectCol: "question_id",
		parentSQL:  `SELECT id, user_id FROM questions WHERE id = $1`,
	},
	model.SubjectComment: {
		table:      "comment_reactions",
		subjectCol: "comment_id",
		parentSQL:  `SELECT question_id, user_id FROM comments WHERE id = $1`,
	},
}

// ReactionTable 返回某类主体对应的反应表名
func ReactionTable(subjectType string) (string, bool) {
	t, ok := reactionTables[subjectType]
	return t.table, ok
}

// ToggleResult 一次切换落库后的结果
type ToggleResult struct {
	Action     string
	QuestionID uuid.UUID
	OwnerID    uuid.UUID
}

type ReactionRepository struct {
	db *pgxpool.Pool
}

func NewReactionRepository(db *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Toggle 在一个事务内完成 查找 → 插入/删除/更新，并写入 outbox 事件。
// 已有行加 FOR UPDATE，两次并发点击按提交顺序生效。
func (r *ReactionRepository) Toggle(ctx context.Context, subjectType string, subjectID, userID uuid.UUID, reactionType string) (*ToggleResult, error) {
	t, ok := reactionTables[subjectType]
	if !ok {
		return nil, fmt.Errorf("unknown subject type %q", subjectType)
	}

	var res ToggleResult
	err := otel.WithDBSpan(ctx, "reaction.toggle", t.table, func(ctx context.Context) error {
		return inTx(ctx, r.db, func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, t.parentSQL, subjectID).Scan(&res.QuestionID, &res.OwnerID); err != nil {
				return notFound(err)
			}

			var (
				rowID    uuid.UUID
				existing *string
				current  string
			)
			err := tx.QueryRow(ctx,
				fmt.Sprintf(`SELECT id, reaction_type FROM %s WHERE %s = $1 AND user_id = $2 FOR UPDATE`, t.table, t.subjectCol),
				subjectID, userID,
			).Scan(&rowID, &current)
			switch {
			case err == nil:
				existing = &current
			case !errors.Is(err, pgx.ErrNoRows):
				return fmt.Errorf("load reaction: %w", err)
			}

			res.Action = model.ToggleAction(existing, reactionType)
			changeType := mqcontracts.ChangeUpdate
			switch res.Action {
			case model.ActionAdded:
				changeType = mqcontracts.ChangeInsert
				rowID, err = r.insert(ctx, tx, t, subjectID, res.QuestionID, userID, reactionType)
			case model.ActionRemoved:
				changeType = mqcontracts.ChangeDelete
				_, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table), rowID)
			case model.ActionSwitched:
				_, err = tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET reaction_type = $2 WHERE id = $1`, t.table), rowID, reactionType)
			}
			if err != nil {
				return fmt.Errorf("%s reaction: %w", res.Action, err)
			}

			events := []OutboxEvent{changeEvent(ctx, t.table, changeType, rowID.String(), map[string]string{
				t.subjectCol:  subjectID.String(),
				"question_id": res.QuestionID.String(),
				"user_id":     userID.String(),
			})}
			if res.Action != model.ActionRemoved {
				events = append(events, OutboxEvent{
					AggregateType: t.table,
					AggregateID:   rowID.String(),
					RoutingKey:    mqcontracts.RoutingReactionChanged,
					Payload: mqcontracts.ReactionChangedPayload{
						Meta:         NewMeta(ctx),
						SubjectType:  subjectType,
						SubjectID:    subjectID.String(),
						QuestionID:   res.QuestionID.String(),
						ActorID:      userID.String(),
						ReactionType: reactionType,
						Action:       res.Action,
					},
				})
			}
			return enqueue(ctx, tx, events...)
		})
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReactionRepository) insert(ctx context.Context, tx pgx.Tx, t reactionTable, subjectID, questionID, userID uuid.UUID, reactionType string) (uuid.UUID, error) {
	var id uuid.UUID
	var err error
	if t.subjectCol == "question_id" {
		err = tx.QueryRow(ctx, `
			INSERT INTO question_reactions (question_id, user_id, reaction_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (question_id, user_id) DO UPDATE SET reaction_type = EXCLUDED.reaction_type
			RETURNING id
		`, subjectID, userID, reactionType).Scan(&id)
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO comment_reactions (comment_id, question_id, user_id, reaction_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (comment_id, user_id) DO UPDATE SET reaction_type = EXCLUDED.reaction_type
			RETURNING id
		`, subjectID, questionID, userID, reactionType).Scan(&id)
	}
	return id, err
}

// Counts 重新统计点赞/点踩数以及当前用户的反应
func (r *ReactionRepository) Counts(ctx context.Context, subjectType string, subjectID, userID uuid.UUID) (model.ReactionCounts, error) {
	var c model.ReactionCounts
	t, ok := reactionTables[subjectType]
	if !ok {
		return c, fmt.Errorf("unknown subject type %q", subjectType)
	}

	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FILTER (WHERE reaction_type = 'like'),
		       COUNT(*) FILTER (WHERE reaction_type = 'dislike'),
		       MAX(reaction_type) FILTER (WHERE user_id = $2)
		FROM %s
		WHERE %s = $1
	`, t.table, t.subjectCol), subjectID, userID).Scan(&c.LikesCount, &c.DislikesCount, &c.UserReaction)
	if err != nil {
		return c, fmt.Errorf("count reactions: %w", err)
	}
	return c, nil
}

// OwnerOf 返回反应主体的作者及所属问题
func (r *ReactionRepository) OwnerOf(ctx context.Context, subjectType string, subjectID uuid.UUID) (owner, questionID uuid.UUID, err error) {
	t, ok := reactionTables[subjectType]
	if !ok {
		return owner, questionID, fmt.Errorf("unknown subject type %q", subjectType)
	}
	err = r.db.QueryRow(ctx, t.parentSQL, subjectID).Scan(&questionID, &owner)
	return owner, questionID, notFound(err)
}
