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

type PatientRepository struct {
	db *pgxpool.Pool
}

func NewPatientRepository(db *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{db: db}
}

// ListPatients 照护者已关联的患者（含坐标）
func (r *PatientRepository) ListPatients(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pc.patient_id, pc.caretaker_id, pc.created_at,
		       p.id, p.name, p.email, p.latitude, p.longitude
		FROM patient_caretaker pc
		JOIN profiles p ON p.id = pc.patient_id
		WHERE pc.caretaker_id = $1
		ORDER BY p.name ASC
	`, caretakerID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PatientLink, error) {
		var l model.PatientLink
		err := row.Scan(&l.PatientID, &l.CaretakerID, &l.CreatedAt,
			&l.Patient.ID, &l.Patient.Name, &l.Patient.Email, &l.Patient.Latitude, &l.Patient.Longitude)
		return l, err
	})
}

// SearchPatients 按姓名模糊搜索可关联的患者，排除自己和已关联的
func (r *PatientRepository) SearchPatients(ctx context.Context, caretakerID uuid.UUID, query string, limit int) ([]model.ProfileSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.email, p.latitude, p.longitude
		FROM profiles p
		WHERE p.role = 'user'
		AND p.id <> $1
		AND p.name ILIKE '%' || $2 || '%'
		AND NOT EXISTS (
			SELECT 1 FROM patient_caretaker pc
			WHERE pc.caretaker_id = $1 AND pc.patient_id = p.id
		)
		ORDER BY p.name ASC
		LIMIT $3
	`, caretakerID, escapeLike(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProfileSummary, error) {
		var s model.ProfileSummary
		err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Latitude, &s.Longitude)
		return s, err
	})
}

// Link 关联患者；重复关联返回 ErrDuplicate
func (r *PatientRepository) Link(ctx context.Context, caretakerID, patientID uuid.UUID) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		var role string
		if err := tx.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, patientID).Scan(&role); err != nil {
			return notFound(err)
		}
		if role != model.RoleUser {
			return ErrNotFound
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO patient_caretaker (patient_id, caretaker_id) VALUES ($1, $2)
		`, patientID, caretakerID)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("link patient: %w", err)
		}

		return enqueue(ctx, tx, changeEvent(ctx, "patient_caretaker", mqcontracts.ChangeInsert, "", map[string]string{
			"patient_id":   patientID.String(),
			"caretaker_id": caretakerID.String(),
		}))
	})
}

// IsLinked 照护者是否照护该患者
func (r *PatientRepository) IsLinked(ctx context.Context, caretakerID, patientID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient_caretaker WHERE caretaker_id = $1 AND patient_id = $2)
	`, caretakerID, patientID).Scan(&ok)
	return ok, err
}

// ListCaregivers 患者视角的照护者列表
func (r *PatientRepository) ListCaregivers(ctx context.Context, patientID uuid.UUID) ([]model.CaregiverLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pc.caretaker_id, pc.created_at, p.id, p.name, p.email
		FROM patient_caretaker pc
		JOIN profiles p ON p.id = pc.caretaker_id
		WHERE pc.patient_id = $1
		ORDER BY pc.created_at ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list caregivers: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CaregiverLink, error) {
		var l model.CaregiverLink
		err := row.Scan(&l.CaretakerID, &l.CreatedAt, &l.Caregiver.ID, &l.Caregiver.Name, &l.Caregiver.Email)
		return l, err
	})
}
