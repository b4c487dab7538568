package db

import (
	"context"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, phone_number, password_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var acc entity.Account
	if err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.PhoneNumber,
		&acc.PasswordHash,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *DB) GetAccountByEmail(ctx context.Context, email string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByEmail")
	defer func() { s.endSpan(span, err) }()

	acc, err := scanAccount(s.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		email,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return acc, nil
}

func (s *DB) GetAccountByID(ctx context.Context, id int64) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByID")
	defer func() { s.endSpan(span, err) }()

	acc, err := scanAccount(s.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return acc, nil
}

func (s *DB) CreateAccount(ctx context.Context, acc entity.Account) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	_, err = s.q.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.ID, acc.Email, acc.PhoneNumber, acc.PasswordHash, acc.CreatedAt, acc.UpdatedAt,
	)
	err = s.mapError(err)
	return err
}

func (s *DB) UpdateAccountPassword(ctx context.Context, id int64, hash string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateAccountPassword")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, at,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
