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

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `t.id, t.description, t.completed, t."user", t.caregiver, t.start_time, t.end_time, t.created_at`

func scanTask(row pgx.Row, t *model.Task, extra ...any) error {
	dest := append([]any{&t.ID, &t.Description, &t.Completed, &t.User, &t.Caregiver, &t.StartTime, &t.EndTime, &t.CreatedAt}, extra...)
	return row.Scan(dest...)
}

// CreateBulk 为多个患者各创建一条任务；任意一条失败则全部回滚
func (r *TaskRepository) CreateBulk(ctx context.Context, tasks []*model.Task) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, t := range tasks {
			err := tx.QueryRow(ctx, `
				INSERT INTO tasks (description, "user", caregiver, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, completed, created_at
			`, t.Description, t.User, t.Caregiver, t.StartTime, t.EndTime).Scan(&t.ID, &t.Completed, &t.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert task: %w", err)
			}

			err = enqueue(ctx, tx,
				changeEvent(ctx, "tasks", mqcontracts.ChangeInsert, t.ID.String(), map[string]string{
					"user":      t.User.String(),
					"caregiver": t.Caregiver.String(),
				}),
				OutboxEvent{
					AggregateType: "tasks",
					AggregateID:   t.ID.String(),
					RoutingKey:    mqcontracts.RoutingTaskAssigned,
					Payload: mqcontracts.TaskAssignedPayload{
						Meta:        NewMeta(ctx),
						TaskID:      t.ID.String(),
						PatientID:   t.User.String(),
						CaregiverID: t.Caregiver.String(),
						Description: t.Description,
						StartTime:   t.StartTime,
					},
				},
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByCaregiver 照护者创建的任务，带患者信息
func (r *TaskRepository) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.TaskView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`, p.id, p.name, p.email
		FROM tasks t
		JOIN profiles p ON p.id = t."user"
		WHERE t.caregiver = $1
		ORDER BY t.start_time ASC
	`, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list caregiver tasks: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TaskView, error) {
		var v model.TaskView
		err := scanTask(row, &v.Task, &v.Patient.ID, &v.Patient.Name, &v.Patient.Email)
		return v, err
	})
}

// ListByPatient 患者自己的任务
func (r *TaskRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t."user" = $1
		ORDER BY t.start_time ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient tasks: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		var t model.Task
		err := scanTask(row, &t)
		return t, err
	})
}

// SetCompleted 只有任务的患者或创建者可以修改
func (r *TaskRepository) SetCompleted(ctx context.Context, taskID, actorID uuid.UUID, completed bool) (*model.Task, error) {
	var t model.Task
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := scanTask(tx.QueryRow(ctx, `
			UPDATE tasks t SET completed = $3
			WHERE t.id = $1 AND (t."user" = $2 OR t.caregiver = $2)
			RETURNING `+taskColumns, taskID, actorID, completed), &t)
		if err != nil {
			return notFound(err)
		}
		return enqueue(ctx, tx, changeEvent(ctx, "tasks", mqcontracts.ChangeUpdate, t.ID.String(), map[string]string{
			"user":      t.User.String(),
			"caregiver": t.Caregiver.String(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
