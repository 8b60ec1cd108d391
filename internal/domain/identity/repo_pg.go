package identity

import (
	"context"
	"errors"
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

const userCols = `id, username, email, password_hash, role, date_of_birth, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.DateOfBirth, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "reading user", err)
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, date_of_birth)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.DateOfBirth).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.E(apperr.KindConflict, "username or email already taken")
		}
		return apperr.Wrap(apperr.KindPersistence, "creating user", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *repoPG) UpdateProfile(ctx context.Context, id uuid.UUID, email string, dob *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email = $2, date_of_birth = $3 WHERE id = $1`,
		id, email, dob)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.E(apperr.KindConflict, "email already taken")
		}
		return apperr.Wrap(apperr.KindPersistence, "updating profile", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	return nil
}

func (r *repoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "counting users", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+userCols+` FROM users WHERE role = $1
		ORDER BY username ASC LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "listing users", err)
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *repoPG) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "counting users", err)
	}
	return n, nil
}
