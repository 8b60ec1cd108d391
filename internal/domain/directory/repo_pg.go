package directory

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

const doctorCols = `id, user_id, name, specialization, slots_per_day, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.SlotsPerDay, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "doctor not found")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "reading doctor", err)
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, slots_per_day)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		d.ID, d.UserID, d.Name, d.Specialization, d.SlotsPerDay).Scan(&d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.E(apperr.KindConflict, "doctor profile already exists for this user")
		}
		return apperr.Wrap(apperr.KindPersistence, "creating doctor", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "counting doctors", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doctorCols+` FROM doctors
		ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "listing doctors", err)
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) UpdateSlots(ctx context.Context, id uuid.UUID, slots int) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE doctors SET slots_per_day = $2 WHERE id = $1`, id, slots)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "updating slots", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.KindNotFound, "doctor not found")
	}
	return nil
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "counting doctors", err)
	}
	return n, nil
}
