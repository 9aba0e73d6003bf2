package store

import (
	"testing"
	"time"

	"github.com/mbolis/vsaq/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCRUD(t *testing.T) {
	f := newFixture(t)

	got, err := f.GetTemplate(f.ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, "Vendor security", got.Name)
	assert.Equal(t, "root", got.CreatedByName)
	assert.False(t, got.IsArchived)

	f.tick()
	got.Name = "Vendor security v2"
	got.Content = `{"version":1,"items":[{"type":"info","text":"hi"}]}`
	require.NoError(t, f.UpdateTemplate(f.ctx, got))

	updated, err := f.GetTemplate(f.ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, "Vendor security v2", updated.Name)
	assert.Equal(t, got.Content, updated.Content)
	assert.Equal(t, f.clock.Unix(), updated.UpdatedAt)
	assert.Less(t, updated.CreatedAt, updated.UpdatedAt)

	require.NoError(t, f.DeleteTemplate(f.ctx, f.template))
	_, err = f.GetTemplate(f.ctx, f.template)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.UpdateTemplate(f.ctx, got), ErrNotFound)
	assert.ErrorIs(t, f.DeleteTemplate(f.ctx, f.template), ErrNotFound)
}

func TestTemplateFrozenOnceSent(t *testing.T) {
	f := newFixture(t)
	f.newInstance(t)

	got, err := f.GetTemplate(f.ctx, f.template)
	require.NoError(t, err)
	got.Name = "changed"

	assert.ErrorIs(t, f.UpdateTemplate(f.ctx, got), ErrTemplateInUse)
	assert.ErrorIs(t, f.DeleteTemplate(f.ctx, f.template), ErrTemplateHasInstances)

	unchanged, err := f.GetTemplate(f.ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, "Vendor security", unchanged.Name)
}

func TestDuplicateTemplate(t *testing.T) {
	f := newFixture(t)
	f.newInstance(t)
	require.NoError(t, f.SetArchived(f.ctx, f.template, true))

	otherAdmin, err := f.CreateAdmin(f.ctx, "other", "secret")
	require.NoError(t, err)

	id, err := f.DuplicateTemplate(f.ctx, f.template, otherAdmin)
	require.NoError(t, err)

	dup, err := f.GetTemplate(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Vendor security (Copy)", dup.Name)
	assert.Equal(t, "other", dup.CreatedByName)
	assert.False(t, dup.IsArchived)

	dup.Name = "editable"
	assert.NoError(t, f.UpdateTemplate(f.ctx, dup), "the copy has no instances")

	_, err = f.DuplicateTemplate(f.ctx, 999, otherAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTemplatesArchived(t *testing.T) {
	f := newFixture(t)

	f.tick()
	second, err := f.CreateTemplate(f.ctx, model.Template{Name: "Second", Content: "{}"})
	require.NoError(t, err)
	require.NoError(t, f.SetArchived(f.ctx, f.template, true))

	active, err := f.ListTemplates(f.ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second, active[0].ID)
	assert.Empty(t, active[0].CreatedByName)

	all, err := f.ListTemplates(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID, "newest first")
	assert.True(t, all[1].IsArchived)

	require.NoError(t, f.SetArchived(f.ctx, f.template, false))
	active, err = f.ListTemplates(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	assert.ErrorIs(t, f.SetArchived(f.ctx, 999, true), ErrNotFound)
}

func TestAdmins(t *testing.T) {
	f := newFixture(t)

	_, err := f.CreateAdmin(f.ctx, "root", "again")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	assert.ErrorIs(t, f.Authenticate(f.ctx, "root", "wrong"), ErrBadCredentials)
	assert.ErrorIs(t, f.Authenticate(f.ctx, "ghost", "hunter2"), ErrBadCredentials)

	f.tick()
	require.NoError(t, f.Authenticate(f.ctx, "root", "hunter2"))
	admin, err := f.GetAdmin(f.ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, f.adminID, admin.ID)
	require.NotNil(t, admin.LastLogin)
	assert.Equal(t, f.clock.Unix(), *admin.LastLogin)
}

func TestTokens(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.StoreToken(f.ctx, "root", "t1", "r1", f.clock.Add(time.Hour)))
	require.NoError(t, f.StoreToken(f.ctx, "root", "t2", "r2", f.clock.Add(-time.Hour)))

	ok, err := f.ConsumeToken(f.ctx, "root", "t1", "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.ConsumeToken(f.ctx, "root", "t1", "r1")
	require.NoError(t, err)
	assert.False(t, ok, "consumed twice")

	ok, err = f.ConsumeToken(f.ctx, "root", "t2", "r2")
	require.NoError(t, err)
	assert.False(t, ok, "expired")
}
