package store

import (
	"context"
	"database/sql"

	"github.com/mbolis/vsaq/model"
	"github.com/pkg/errors"
)

const templateColumns = `
	t.id, t.name, t.description, t.content,
	COALESCE(t.created_by, 0), COALESCE(a.username, ''),
	t.created_at, t.updated_at, t.is_archived`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (t model.Template, err error) {
	err = row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Content,
		&t.CreatedBy, &t.CreatedByName,
		&t.CreatedAt, &t.UpdatedAt, &t.IsArchived,
	)
	return
}

// ListTemplates returns templates newest first. Archived ones are left out
// unless includeArchived is set.
func (s *Store) ListTemplates(ctx context.Context, includeArchived bool) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+templateColumns+`
		FROM template t
		LEFT OUTER JOIN admin a ON (a.id = t.created_by)
		WHERE ? OR t.is_archived = 0
		ORDER BY t.created_at DESC, t.id DESC`,
		includeArchived,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list templates: scan")
		}
		templates = append(templates, t)
	}
	return templates, errors.Wrap(rows.Err(), "list templates")
}

func (s *Store) GetTemplate(ctx context.Context, id int) (model.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT`+templateColumns+`
		FROM template t
		LEFT OUTER JOIN admin a ON (a.id = t.created_by)
		WHERE t.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, errors.Wrapf(err, "get template %d", id)
}

func (s *Store) CreateTemplate(ctx context.Context, t model.Template) (id int, err error) {
	now := s.unixNow()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO template (name, description, content, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.Name,
		t.Description,
		t.Content,
		nullID(t.CreatedBy),
		now,
		now,
	).Scan(&id)
	return id, errors.Wrap(err, "create template")
}

// UpdateTemplate overwrites name, description and content. A template is
// frozen once any of its instances has been sent.
func (s *Store) UpdateTemplate(ctx context.Context, t model.Template) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE template
		SET
			name = ?,
			description = ?,
			content = ?,
			updated_at = ?
		WHERE id = ?
			AND NOT EXISTS (
				SELECT 1 FROM instance i
				WHERE i.template_id = template.id
					AND i.sent_at IS NOT NULL
			)`,
		t.Name,
		t.Description,
		t.Content,
		s.unixNow(),
		t.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update template %d", t.ID)
	}
	ok, err := affected(res)
	if err != nil || ok {
		return errors.Wrapf(err, "update template %d", t.ID)
	}

	if _, err := s.GetTemplate(ctx, t.ID); err != nil {
		return err
	}
	return ErrTemplateInUse
}

func (s *Store) DeleteTemplate(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM template
		WHERE id = ?
			AND NOT EXISTS (SELECT 1 FROM instance i WHERE i.template_id = template.id)`,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "delete template %d", id)
	}
	ok, err := affected(res)
	if err != nil || ok {
		return errors.Wrapf(err, "delete template %d", id)
	}

	if _, err := s.GetTemplate(ctx, id); err != nil {
		return err
	}
	return ErrTemplateHasInstances
}

// DuplicateTemplate copies a template under the name "<name> (Copy)", owned
// by adminID and never archived.
func (s *Store) DuplicateTemplate(ctx context.Context, id int, adminID int) (newID int, err error) {
	now := s.unixNow()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO template (name, description, content, created_by, created_at, updated_at)
		SELECT t.name || ' (Copy)', t.description, t.content, ?, ?, ?
		FROM template t
		WHERE t.id = ?
		RETURNING id`,
		nullID(adminID),
		now,
		now,
		id,
	).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return newID, errors.Wrapf(err, "duplicate template %d", id)
}

func (s *Store) SetArchived(ctx context.Context, id int, archived bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE template SET is_archived = ? WHERE id = ?`,
		archived,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "archive template %d", id)
	}
	ok, err := affected(res)
	if err != nil {
		return errors.Wrapf(err, "archive template %d", id)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
