package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fastjob.dev/devtools/internal/auth"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

var (
	_ auth.TokenStore     = (*Store)(nil)
	_ auth.TokenValidator = (*Store)(nil)
	_ auth.TokenStore     = OneShot{}
)

// Store reads and writes the login_token table.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL. The tools issue a handful of statements per
// run, so the pool is kept to a single connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Create(ctx context.Context, tok auth.LoginToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into login_token (token, user_id, ip, user_agent) values ($1, $2, $3, $4)`,
		tok.Token, tok.UserID, tok.IP, tok.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert login_token: %w", err)
	}
	return nil
}

// Validate succeeds when token is recorded for userID.
func (s *Store) Validate(ctx context.Context, userID int64, token string) error {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from login_token where token = $1 and user_id = $2)`,
		token, userID,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("validate login_token: %w", err)
	}
	if !ok {
		return auth.ErrNotLoggedIn
	}
	return nil
}

// List returns every token recorded for userID, newest first.
func (s *Store) List(ctx context.Context, userID int64) ([]auth.LoginToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		select token, user_id, coalesce(ip, ''), coalesce(user_agent, ''), published
		from login_token
		where user_id = $1
		order by published desc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list login_token: %w", err)
	}
	defer rows.Close()

	var res []auth.LoginToken
	for rows.Next() {
		var tok auth.LoginToken
		if err := rows.Scan(&tok.Token, &tok.UserID, &tok.IP, &tok.UserAgent, &tok.Published); err != nil {
			return nil, err
		}
		res = append(res, tok)
	}
	return res, rows.Err()
}

// Invalidate deletes a single token, e.g. on logout.
func (s *Store) Invalidate(ctx context.Context, token string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from login_token where token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("delete login_token: %w", err)
	}
	return res.RowsAffected()
}

// InvalidateAll deletes every token of userID.
func (s *Store) InvalidateAll(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from login_token where user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete login_token: %w", err)
	}
	return res.RowsAffected()
}

// OneShot is a TokenStore that opens a connection for every Create and
// closes it afterwards.
type OneShot struct {
	Driver string
	DSN    string
}

func (o OneShot) Create(ctx context.Context, tok auth.LoginToken) error {
	if o.DSN == "" {
		return errors.New("pg: dsn is required")
	}
	driver := o.Driver
	if driver == "" {
		driver = DriverName
	}
	db, err := sql.Open(driver, o.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	return New(db).Create(ctx, tok)
}
