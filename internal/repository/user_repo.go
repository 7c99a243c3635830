package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mernapp-auth/internal/domain"
)

// ErrDuplicateSubject señala que ya existe un registro con ese subject_id.
// El índice único de la tabla es quien garantiza la unicidad bajo concurrencia.
var ErrDuplicateSubject = errors.New("duplicate subject")

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetBySubject(ctx context.Context, subject string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (subject_id, email, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		user.SubjectID,
		user.Email,
		user.DisplayName,
		user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSubject
	}
	return err
}

func (r *PgUserRepository) GetBySubject(ctx context.Context, subject string) (domain.User, error) {
	const query = `
		SELECT subject_id, email, display_name, created_at
		FROM users
		WHERE subject_id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, subject).Scan(
		&u.SubjectID,
		&u.Email,
		&u.DisplayName,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
