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

type ReminderRepository struct {
	db *pgxpool.Pool
}

func NewReminderRepository(db *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, m *model.MedicalReminder) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO medical_reminders (description, time, "user", caregiver)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, m.Description, m.Time, m.User, m.Caregiver).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}

		return enqueue(ctx, tx,
			changeEvent(ctx, "medical_reminders", mqcontracts.ChangeInsert, m.ID.String(), map[string]string{
				"user":      m.User.String(),
				"caregiver": m.Caregiver.String(),
			}),
			OutboxEvent{
				AggregateType: "medical_reminders",
				AggregateID:   m.ID.String(),
				RoutingKey:    mqcontracts.RoutingReminderCreated,
				Payload: mqcontracts.ReminderCreatedPayload{
					Meta:        NewMeta(ctx),
					ReminderID:  m.ID.String(),
					PatientID:   m.User.String(),
					CaregiverID: m.Caregiver.String(),
					Description: m.Description,
					Time:        m.Time,
				},
			},
		)
	})
}

func (r *ReminderRepository) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.ReminderView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.description, m.time, m."user", m.caregiver, m.created_at,
		       p.id, p.name, p.email
		FROM medical_reminders m
		JOIN profiles p ON p.id = m."user"
		WHERE m.caregiver = $1
		ORDER BY m.time ASC
	`, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list caregiver reminders: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ReminderView, error) {
		var v model.ReminderView
		err := row.Scan(&v.ID, &v.Description, &v.Time, &v.User, &v.Caregiver, &v.CreatedAt,
			&v.Patient.ID, &v.Patient.Name, &v.Patient.Email)
		return v, err
	})
}

func (r *ReminderRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.MedicalReminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, description, time, "user", caregiver, created_at
		FROM medical_reminders
		WHERE "user" = $1
		ORDER BY time ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient reminders: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.MedicalReminder])
}
