package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mbolis/vsaq/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) CreateAdmin(ctx context.Context, username, password string) (id int, err error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, errors.Wrap(err, "create admin: hash password")
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO admin (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id`,
		username,
		string(hash),
		s.unixNow(),
	).Scan(&id)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return 0, ErrUsernameTaken
	}
	return id, errors.Wrap(err, "create admin")
}

func (s *Store) GetAdmin(ctx context.Context, username string) (model.Admin, error) {
	a := model.Admin{}
	var lastLogin sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at, last_login
		FROM admin
		WHERE username = ?`,
		username,
	).Scan(&a.ID, &a.Username, &a.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Int64
	}
	return a, errors.Wrapf(err, "get admin %s", username)
}

// Authenticate checks the password of username and records the login.
// Unknown users and wrong passwords are both ErrBadCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT password_hash FROM admin WHERE username = ?`,
		username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return errors.Wrap(err, "authenticate")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadCredentials
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE admin SET last_login = ? WHERE username = ?`,
		s.unixNow(),
		username,
	)
	return errors.Wrap(err, "authenticate: last login")
}

// StoreToken remembers an issued refresh token pair until expiration.
func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username,
		tokenID,
		refreshTokenID,
		expiration.Unix(),
	)
	return errors.Wrap(err, "store token")
}

// ConsumeToken deletes a stored token pair and reports whether it was present
// and still valid. A token pair can be consumed only once.
func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (bool, error) {
	var expiration int64
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "consume token")
	}
	return expiration > s.unixNow(), nil
}
