package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `r.id, r.patient_id, r.doctor_id, r.diagnosis, r.prescription,
	r.visit_date, r.notes, r.created_at, d.name, u.username`

const recordJoin = ` FROM patient_records r
	JOIN doctors d ON d.id = r.doctor_id
	JOIN users u ON u.id = r.patient_id`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.Diagnosis, &m.Prescription,
		&m.VisitDate, &m.Notes, &m.CreatedAt, &m.DoctorName, &m.PatientUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "record not found")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "reading record", err)
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *MedicalRecord) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_records (id, patient_id, doctor_id, diagnosis, prescription, visit_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		m.ID, m.PatientID, m.DoctorID, m.Diagnosis, m.Prescription, m.VisitDate, m.Notes).Scan(&m.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "creating record", err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_records WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "counting records", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+recordJoin+` WHERE r.patient_id = $1
		ORDER BY r.visit_date DESC, r.created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "listing records", err)
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+recordJoin+` WHERE r.doctor_id = $1
		ORDER BY u.username ASC, r.visit_date DESC, r.created_at DESC`,
		doctorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "listing doctor records", err)
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}
