package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/avdeyev/go-task-tracker/internal/models"
)

type PostgresUserRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresUserRepository(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *PostgresUserRepository {
	return &PostgresUserRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *PostgresUserRepository) Insert(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   email,
                   name,
                   password_hash,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailTaken
		}

		r.logger.Error().
			Err(err).
			Str("email", user.Email).
			Msg("failed to insert user")
		return err
	}
	r.logger.Debug().
		Str("user_id", user.ID).
		Msg("inserted user")
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	const selectUserByIDQuery = `
SELECT id,
       email,
       name,
       password_hash,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	return r.scanUser(r.pgPool.QueryRow(ctx, selectUserByIDQuery, id))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const selectUserByEmailQuery = `
SELECT id,
       email,
       name,
       password_hash,
       created_at,
       updated_at
FROM users
WHERE email = $1
`
	return r.scanUser(r.pgPool.QueryRow(ctx, selectUserByEmailQuery, email))
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.logger.Error().
			Err(err).
			Msg("failed to scan user")
		return nil, err
	}
	return user, nil
}
