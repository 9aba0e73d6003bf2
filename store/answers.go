package store

import (
	"context"
	"database/sql"

	"github.com/mbolis/vsaq/model"
	"github.com/pkg/errors"
)

// GetFill loads the respondent view of the instance behind link.
func (s *Store) GetFill(ctx context.Context, link string) (model.Fill, error) {
	f := model.Fill{}
	var submittedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			i.id, t.name, t.description, t.content,
			i.is_locked, i.submitted_at, i.version
		FROM instance i
		INNER JOIN template t ON (t.id = i.template_id)
		WHERE i.unique_link = ?`,
		link,
	).Scan(
		&f.InstanceID, &f.Name, &f.Description, &f.Content,
		&f.IsLocked, &submittedAt, &f.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	if err != nil {
		return f, errors.Wrap(err, "get fill")
	}
	if submittedAt.Valid {
		f.SubmittedAt = &submittedAt.Int64
	}

	f.Answers, err = s.LoadAnswers(ctx, f.InstanceID)
	return f, err
}

func (s *Store) LoadAnswers(ctx context.Context, instanceID int) (map[string]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, value, version, updated_at
		FROM answer
		WHERE instance_id = ?`,
		instanceID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "load answers of instance %d", instanceID)
	}
	defer rows.Close()

	answers := map[string]model.Answer{}
	for rows.Next() {
		var id string
		a := model.Answer{}
		err = rows.Scan(&id, &a.Value, &a.Version, &a.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "load answers: scan")
		}
		answers[id] = a
	}
	return answers, errors.Wrap(rows.Err(), "load answers")
}

// SaveAnswer writes value for questionID if the stored version is not ahead
// of clientVersion. The check and the write are the same statement, so two
// writers holding the same version cannot both be accepted: the loser gets a
// Conflict carrying the winner's version.
//
// The instance must exist (ErrNotFound) and be open (ErrLocked).
func (s *Store) SaveAnswer(ctx context.Context, link, questionID, value string, clientVersion int) (res model.SaveResult, err error) {
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO answer (instance_id, question_id, value, version, updated_at)
		SELECT i.id, ?, ?, 1, ?
		FROM instance i
		WHERE i.unique_link = ?
			AND i.is_locked = 0
		ON CONFLICT (instance_id, question_id) DO UPDATE
		SET
			value = excluded.value,
			version = answer.version + 1,
			updated_at = excluded.updated_at
		WHERE answer.version <= ?
		RETURNING version, updated_at`,
		questionID,
		value,
		s.unixNow(),
		link,
		clientVersion,
	).Scan(&res.Version, &res.UpdatedAt)
	if err == nil {
		res.Outcome = model.Accepted
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return res, errors.Wrap(err, "save answer")
	}

	return s.refusedSave(ctx, link, questionID)
}

// refusedSave tells why SaveAnswer wrote nothing. It runs after the refused
// statement, so the instance may have been unlocked in between: an open
// instance without a stored answer can only have been locked at save time.
func (s *Store) refusedSave(ctx context.Context, link, questionID string) (res model.SaveResult, err error) {
	var instanceID int
	var locked bool
	err = s.db.QueryRowContext(ctx, `
		SELECT id, is_locked FROM instance WHERE unique_link = ?`,
		link,
	).Scan(&instanceID, &locked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return res, ErrNotFound
	case err != nil:
		return res, errors.Wrap(err, "save answer: lookup instance")
	case locked:
		return res, ErrLocked
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT version, updated_at
		FROM answer
		WHERE instance_id = ?
			AND question_id = ?`,
		instanceID,
		questionID,
	).Scan(&res.Version, &res.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return res, ErrLocked
	case err != nil:
		return res, errors.Wrap(err, "save answer: lookup conflict")
	}
	res.Outcome = model.Conflict
	return res, nil
}
