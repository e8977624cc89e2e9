package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
)

type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Contact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, "user", contact_name, number, created_at
		FROM contacts
		WHERE "user" = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.Contact])
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO contacts ("user", contact_name, number)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, c.User, c.ContactName, c.Number).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		return enqueue(ctx, tx, changeEvent(ctx, "contacts", mqcontracts.ChangeInsert, c.ID.String(),
			map[string]string{"user": c.User.String()}))
	})
}

// Delete 只能删除自己的联系人
func (r *ContactRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND "user" = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return enqueue(ctx, tx, changeEvent(ctx, "contacts", mqcontracts.ChangeDelete, id.String(),
			map[string]string{"user": userID.String()}))
	})
}

// ListForCaregiver 所有已关联患者的联系人，按患者分组
func (r *ContactRepository) ListForCaregiver(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientContacts, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.email,
		       c.id, c."user", c.contact_name, c.number, c.created_at
		FROM patient_caretaker pc
		JOIN profiles p ON p.id = pc.patient_id
		LEFT JOIN contacts c ON c."user" = p.id
		WHERE pc.caretaker_id = $1
		ORDER BY p.name ASC, p.id, c.created_at DESC
	`, caretakerID)
	if err != nil {
		return nil, fmt.Errorf("list caregiver contacts: %w", err)
	}
	defer rows.Close()

	var groups []model.PatientContacts
	for rows.Next() {
		var (
			patient   model.ProfileSummary
			contactID *uuid.UUID
			user      *uuid.UUID
			name, num *string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&patient.ID, &patient.Name, &patient.Email,
			&contactID, &user, &name, &num, &createdAt); err != nil {
			return nil, err
		}

		if len(groups) == 0 || groups[len(groups)-1].Patient.ID != patient.ID {
			groups = append(groups, model.PatientContacts{Patient: patient, Contacts: []model.Contact{}})
		}
		if contactID != nil {
			g := &groups[len(groups)-1]
			g.Contacts = append(g.Contacts, model.Contact{
				ID:          *contactID,
				User:        *user,
				ContactName: *name,
				Number:      *num,
				CreatedAt:   createdAt.Time,
			})
		}
	}
	return groups, rows.Err()
}
