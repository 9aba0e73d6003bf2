// Package store keeps templates, instances, answers and admin accounts in
// SQLite. Every state transition that has a precondition (instance open,
// answer version not ahead of the client, template not yet sent) is checked
// inside the statement that performs it, so concurrent requests never act on
// a stale read.
package store

import (
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/gofrs/uuid"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) unixNow() int64 {
	return s.now().Unix()
}

// newLink returns 32 hex chars of randomness, the respondent's capability.
func newLink() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id.Bytes()), nil
}

func nullID(id int) any {
	if id == 0 {
		return nil
	}
	return id
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
