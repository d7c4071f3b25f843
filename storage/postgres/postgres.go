// Package postgres implements storage.Repository backed by PostgreSQL.
//
// Each record type has its own table. Destination and action queries are
// always filtered by the owning user id so that one account can never
// read or delete another account's rows.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/omiassist/storage"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func wrapInsert(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, storage.ErrAlreadyExists)
	}
	return err
}

func wrapNoRows(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

func (s *Store) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(`+sql+`)`, args...).Scan(&exists)
	return exists, err
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) InsertUser(ctx context.Context, user *storage.UserAccount) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_account (id, user_token, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.UserToken, user.CreatedAt)
	return wrapInsert(err, "user "+user.ID)
}

func (s *Store) LoadUser(ctx context.Context, id string) (*storage.UserAccount, error) {
	var user storage.UserAccount
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_token, created_at FROM user_account WHERE id = $1`, id).
		Scan(&user.ID, &user.UserToken, &user.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err, "user "+id)
	}
	return &user, nil
}

func (s *Store) UpdateUserToken(ctx context.Context, id, userToken string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_account SET user_token = $2 WHERE id = $1`, id, userToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Omi accounts
// ---------------------------------------------------------------------------

func (s *Store) InsertOmiAccount(ctx context.Context, acct *storage.OmiAccount) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO omi_account (id, user_id, created_at) VALUES ($1, $2, $3)`,
		acct.ID, acct.UserID, acct.CreatedAt)
	return wrapInsert(err, "omi account "+acct.ID)
}

func (s *Store) LoadOmiAccount(ctx context.Context, id string) (*storage.OmiAccount, error) {
	var acct storage.OmiAccount
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at FROM omi_account WHERE id = $1`, id).
		Scan(&acct.ID, &acct.UserID, &acct.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err, "omi account "+id)
	}
	return &acct, nil
}

func (s *Store) OmiAccountExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM omi_account WHERE id = $1`, id)
}

// ---------------------------------------------------------------------------
// Telegram accounts
// ---------------------------------------------------------------------------

const telegramColumns = `id, user_id, first_name, username, created_at`

func scanTelegram(row pgx.Row) (*storage.TelegramAccount, error) {
	var acct storage.TelegramAccount
	if err := row.Scan(&acct.ID, &acct.UserID, &acct.FirstName, &acct.Username, &acct.CreatedAt); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) InsertTelegramAccount(ctx context.Context, acct *storage.TelegramAccount) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO telegram_account (`+telegramColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		acct.ID, acct.UserID, acct.FirstName, acct.Username, acct.CreatedAt)
	return wrapInsert(err, fmt.Sprintf("telegram account %d", acct.ID))
}

func (s *Store) LoadTelegramAccount(ctx context.Context, id int64) (*storage.TelegramAccount, error) {
	acct, err := scanTelegram(s.pool.QueryRow(ctx,
		`SELECT `+telegramColumns+` FROM telegram_account WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNoRows(err, fmt.Sprintf("telegram account %d", id))
	}
	return acct, nil
}

func (s *Store) LoadTelegramAccountByUser(ctx context.Context, userID string) (*storage.TelegramAccount, error) {
	acct, err := scanTelegram(s.pool.QueryRow(ctx,
		`SELECT `+telegramColumns+` FROM telegram_account WHERE user_id = $1 LIMIT 1`, userID))
	if err != nil {
		return nil, wrapNoRows(err, "telegram account for user "+userID)
	}
	return acct, nil
}

func (s *Store) TelegramAccountExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM telegram_account WHERE id = $1`, id)
}

func (s *Store) UpdateTelegramName(ctx context.Context, id int64, firstName string, username *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE telegram_account SET first_name = $2, username = $3 WHERE id = $1`,
		id, firstName, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("telegram account %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Destinations
// ---------------------------------------------------------------------------

const destinationColumns = `id, user_id, chat_id, name, kind, created_at`

func scanDestination(row pgx.Row) (*storage.Destination, error) {
	var dest storage.Destination
	if err := row.Scan(&dest.ID, &dest.UserID, &dest.ChatID, &dest.Name, &dest.Kind, &dest.CreatedAt); err != nil {
		return nil, err
	}
	return &dest, nil
}

func (s *Store) InsertDestination(ctx context.Context, dest *storage.Destination) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO telegram_destination (`+destinationColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		dest.ID, dest.UserID, dest.ChatID, dest.Name, dest.Kind, dest.CreatedAt)
	return wrapInsert(err, "destination "+dest.ID)
}

func (s *Store) LoadDestination(ctx context.Context, userID, id string) (*storage.Destination, error) {
	dest, err := scanDestination(s.pool.QueryRow(ctx,
		`SELECT `+destinationColumns+` FROM telegram_destination WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, wrapNoRows(err, "destination "+id)
	}
	return dest, nil
}

func (s *Store) ListDestinations(ctx context.Context, userID string) ([]storage.Destination, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+destinationColumns+` FROM telegram_destination WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Destination
	for rows.Next() {
		dest, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *dest)
	}
	return out, rows.Err()
}

func (s *Store) DestinationExists(ctx context.Context, userID string, chatID int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM telegram_destination WHERE user_id = $1 AND chat_id = $2`, userID, chatID)
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func (s *Store) InsertAction(ctx context.Context, action *storage.Action) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO telegram_action (id, destination_id, prompt, msg, created_at) VALUES ($1, $2, $3, $4, $5)`,
		action.ID, action.DestinationID, action.Prompt, action.Message, action.CreatedAt)
	return wrapInsert(err, "action "+action.ID)
}

func (s *Store) DeleteAction(ctx context.Context, userID, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM telegram_action
		 WHERE id = $1
		   AND destination_id IN (SELECT id FROM telegram_destination WHERE user_id = $2)`,
		id, userID)
	return err
}

func (s *Store) ListActions(ctx context.Context, userID string) ([]storage.ActionWithDestination, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.destination_id, a.prompt, a.msg, a.created_at,
		        d.id, d.user_id, d.chat_id, d.name, d.kind, d.created_at
		 FROM telegram_action a
		 JOIN telegram_destination d ON d.id = a.destination_id
		 WHERE d.user_id = $1
		 ORDER BY a.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ActionWithDestination
	for rows.Next() {
		var a storage.ActionWithDestination
		if err := rows.Scan(
			&a.ID, &a.DestinationID, &a.Prompt, &a.Message, &a.CreatedAt,
			&a.Destination.ID, &a.Destination.UserID, &a.Destination.ChatID,
			&a.Destination.Name, &a.Destination.Kind, &a.Destination.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
