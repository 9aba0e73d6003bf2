package store

import (
	"context"
	"database/sql"

	"github.com/mbolis/vsaq/model"
	"github.com/pkg/errors"
)

const instanceColumns = `
	i.id, i.template_id, t.name, i.unique_link,
	i.target_name, i.target_email, COALESCE(i.created_by, 0),
	i.created_at, i.sent_at, i.submitted_at, i.is_locked, i.version,
	(SELECT COUNT(*) FROM answer x WHERE x.instance_id = i.id)`

func scanInstance(row scanner) (i model.Instance, err error) {
	var sentAt, submittedAt sql.NullInt64
	err = row.Scan(
		&i.ID, &i.TemplateID, &i.TemplateName, &i.UniqueLink,
		&i.TargetName, &i.TargetEmail, &i.CreatedBy,
		&i.CreatedAt, &sentAt, &submittedAt, &i.IsLocked, &i.Version,
		&i.AnswerCount,
	)
	if sentAt.Valid {
		i.SentAt = &sentAt.Int64
	}
	if submittedAt.Valid {
		i.SubmittedAt = &submittedAt.Int64
	}
	return
}

func (s *Store) ListInstances(ctx context.Context) ([]model.Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+instanceColumns+`
		FROM instance i
		INNER JOIN template t ON (t.id = i.template_id)
		ORDER BY i.created_at DESC, i.id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list instances")
	}
	defer rows.Close()

	instances := []model.Instance{}
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list instances: scan")
		}
		instances = append(instances, i)
	}
	return instances, errors.Wrap(rows.Err(), "list instances")
}

func (s *Store) GetInstance(ctx context.Context, id int) (model.Instance, error) {
	i, err := scanInstance(s.db.QueryRowContext(ctx, `
		SELECT`+instanceColumns+`
		FROM instance i
		INNER JOIN template t ON (t.id = i.template_id)
		WHERE i.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return i, ErrNotFound
	}
	return i, errors.Wrapf(err, "get instance %d", id)
}

// CreateInstance issues a fresh unique link for the template. The instance
// counts as sent from the moment it exists.
func (s *Store) CreateInstance(ctx context.Context, in model.Instance) (model.Instance, error) {
	link, err := newLink()
	if err != nil {
		return in, errors.Wrap(err, "create instance: link")
	}

	now := s.unixNow()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO instance (template_id, unique_link, target_name, target_email, created_by, created_at, sent_at)
		SELECT t.id, ?, ?, ?, ?, ?, ?
		FROM template t
		WHERE t.id = ?
		RETURNING id`,
		link,
		in.TargetName,
		in.TargetEmail,
		nullID(in.CreatedBy),
		now,
		now,
		in.TemplateID,
	).Scan(&in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return in, ErrNotFound
	}
	if err != nil {
		return in, errors.Wrap(err, "create instance")
	}

	return s.GetInstance(ctx, in.ID)
}

// DeleteInstance removes an open instance together with its answers.
func (s *Store) DeleteInstance(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM instance WHERE id = ? AND is_locked = 0`,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "delete instance %d", id)
	}
	ok, err := affected(res)
	if err != nil || ok {
		return errors.Wrapf(err, "delete instance %d", id)
	}

	if _, err := s.GetInstance(ctx, id); err != nil {
		return err
	}
	return ErrCannotDeleteSubmitted
}

// Submit locks the instance behind link. It succeeds once: submitted_at is
// never overwritten by a later call.
func (s *Store) Submit(ctx context.Context, link string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instance
		SET
			is_locked = 1,
			submitted_at = ?
		WHERE unique_link = ?
			AND is_locked = 0`,
		s.unixNow(),
		link,
	)
	if err != nil {
		return errors.Wrap(err, "submit instance")
	}
	ok, err := affected(res)
	if err != nil || ok {
		return errors.Wrap(err, "submit instance")
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM instance WHERE unique_link = ?`,
		link,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "submit instance: lookup")
	}
	return ErrAlreadySubmitted
}

// Unlock reopens an instance for editing and forgets its submission time.
func (s *Store) Unlock(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instance
		SET
			is_locked = 0,
			submitted_at = NULL
		WHERE id = ?`,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "unlock instance %d", id)
	}
	ok, err := affected(res)
	if err != nil {
		return errors.Wrapf(err, "unlock instance %d", id)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
