package preferences

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/rvstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCategories struct {
	existsFn func(ctx context.Context, id int64) (bool, error)
}

func (f fakeCategories) CategoryExists(ctx context.Context, id int64) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, id)
	}
	return true, nil
}

func newTestService(t *testing.T, categories CategoryLookup) (Service, *Repository) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, categories, "0.10", logger.New(logger.Options{ServiceName: "prefs-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, repo
}

func TestSeededDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, fakeCategories{})

	margin, err := svc.DefaultMargin(ctx)
	require.NoError(t, err)
	assert.True(t, margin.Equal(decimal.RequireFromString("0.05")), "got %s", margin)

	categoryID, err := svc.DefaultCategoryIDInTx(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, categoryID)

	prefs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, enums.PreferenceKeyGlobalDefaultMargin, prefs[0].Key)
}

func TestSetDefaultMargin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, fakeCategories{})

	got, err := svc.SetDefaultMargin(ctx, decimal.RequireFromString("0.125"))
	require.NoError(t, err)
	assert.Equal(t, "0.125", got.String())

	margin, err := svc.DefaultMargin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.125", margin.String())

	_, err = svc.Set(ctx, enums.PreferenceKeyGlobalDefaultMargin, "-0.2")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Set(ctx, enums.PreferenceKeyGlobalDefaultMargin, "lots")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetDefaultCategoryValidatesReference(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, fakeCategories{existsFn: func(_ context.Context, id int64) (bool, error) {
		return id == 7, nil
	}})

	_, err := svc.Set(ctx, enums.PreferenceKeyDefaultProductCategory, "8")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidReference))

	_, err = svc.Set(ctx, enums.PreferenceKeyDefaultProductCategory, "abc")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	pref, err := svc.Set(ctx, enums.PreferenceKeyDefaultProductCategory, " 7 ")
	require.NoError(t, err)
	assert.Equal(t, "7", pref.Value)

	id, err := svc.DefaultCategoryIDInTx(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
}

func TestMissingRowsFallBack(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, fakeCategories{})
	require.NoError(t, repo.db.Exec("DELETE FROM preferences").Error)

	margin, err := svc.DefaultMargin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.1", margin.String())

	pref, err := svc.Get(ctx, enums.PreferenceKeyDefaultProductCategory)
	require.NoError(t, err)
	assert.Equal(t, "1", pref.Value)

	_, err = svc.Get(ctx, enums.PreferenceKey("colour"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRejectsBadFallback(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewService(NewRepository(client.DB()), fakeCategories{}, "x", logger.New(logger.Options{Output: io.Discard}))
	require.Error(t, err)
}
