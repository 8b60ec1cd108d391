package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const apptCols = `a.id, a.patient_id, a.doctor_id, a.appointment_date, a.appointment_time,
	a.reason, a.status, a.created_at, d.name, u.username`

const apptJoin = ` FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
		&a.Reason, &a.Status, &a.CreatedAt, &a.DoctorName, &a.PatientUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "appointment not found")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "reading appointment", err)
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Reason, a.Status).Scan(&a.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "creating appointment", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptJoin+` WHERE a.id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "updating appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.KindNotFound, "appointment not found")
	}
	return nil
}

// list runs a filtered, ordered page query plus its count.
func (r *repoPG) list(ctx context.Context, where, order string, whereArgs []interface{}, status string, limit, offset int) ([]*Appointment, int, error) {
	args := append([]interface{}{}, whereArgs...)
	idx := len(args) + 1

	if status != "" {
		where += fmt.Sprintf(" AND a.status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+apptJoin+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "counting appointments", err)
	}

	query := `SELECT ` + apptCols + apptJoin + ` WHERE ` + where +
		fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "listing appointments", err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "a.patient_id = $1", "a.appointment_date DESC, a.created_at DESC",
		[]interface{}{patientID}, status, limit, offset)
}

func (r *repoPG) RecentByPatient(ctx context.Context, patientID uuid.UUID, n int) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+apptJoin+` WHERE a.patient_id = $1 ORDER BY a.created_at DESC LIMIT $2`,
		patientID, n)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "listing recent appointments", err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "a.doctor_id = $1", "a.appointment_date DESC, a.created_at DESC",
		[]interface{}{doctorID}, status, limit, offset)
}

func (r *repoPG) ListAll(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "TRUE", "a.created_at DESC", nil, status, limit, offset)
}

func (r *repoPG) CountApproved(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status = $3`,
		doctorID, date, StatusApproved).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "counting approved appointments", err)
	}
	return n, nil
}

func (r *repoPG) Stats(ctx context.Context, patientID, doctorID uuid.UUID) (Stats, error) {
	where := "TRUE"
	var args []interface{}
	idx := 1
	if patientID != uuid.Nil {
		where += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, patientID)
		idx++
	}
	if doctorID != uuid.Nil {
		where += fmt.Sprintf(" AND doctor_id = $%d", idx)
		args = append(args, doctorID)
	}

	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM appointments WHERE `+where, args...).
		Scan(&s.Total, &s.Pending, &s.Approved, &s.Rejected)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindPersistence, "aggregating appointment stats", err)
	}
	return s, nil
}
