package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/user"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{exec: db}
}

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	IsActive     bool         `db:"is_active"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

const selectUser = `SELECT id, name, email, is_active, password_hash, created_at, updated_at, last_login FROM teachers`

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM teachers WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		inQuery, inArgs, err := sqlx.In(query+` AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query, args = inQuery, inArgs
	}

	var count int
	if err := repo.exec.GetContext(ctx, &count, repo.exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	query := `
INSERT INTO teachers (id, name, email, is_active, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := repo.exec.ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Email, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	); err != nil {
		return user.User{}, errors.Wrap(err, "creating teacher")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.exec.SelectContext(ctx, &rows, selectUser+` ORDER BY `+creationOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := repo.exec.GetContext(ctx, &row, selectUser+` WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting teacher by id")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.exec.GetContext(ctx, &row, selectUser+` WHERE email = $1`, email); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting teacher by email")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
UPDATE teachers SET name = $2, is_active = $3, password_hash = $4, updated_at = $5
WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, query, usr.ID, usr.Name, usr.IsActive, usr.PasswordHash, usr.UpdatedAt)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	if _, err := repo.exec.ExecContext(ctx, `UPDATE teachers SET last_login = $2 WHERE id = $1`, id, t); err != nil {
		return errors.Wrap(err, "recording last login")
	}
	return nil
}

func (repo *userRepository) SaveVerificationCode(ctx context.Context, vc user.VerificationCode) error {
	query := `
INSERT INTO verification_codes (email, code, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`
	if _, err := repo.exec.ExecContext(ctx, query, vc.Email, vc.Code, vc.ExpiresAt); err != nil {
		return errors.Wrap(err, "saving verification code")
	}
	return nil
}

func (repo *userRepository) GetVerificationCode(ctx context.Context, email string) (user.VerificationCode, error) {
	var vc user.VerificationCode
	query := `SELECT email, code, expires_at FROM verification_codes WHERE email = $1`
	if err := repo.exec.QueryRowContext(ctx, query, email).Scan(&vc.Email, &vc.Code, &vc.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return user.VerificationCode{}, user.ErrCodeNotFound
		}
		return user.VerificationCode{}, errors.Wrap(err, "getting verification code")
	}
	return vc, nil
}

func (repo *userRepository) DeleteVerificationCode(ctx context.Context, email string) error {
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, email); err != nil {
		return errors.Wrap(err, "deleting verification code")
	}
	return nil
}
