package territory

import (
	"context"
	"testing"

	"github.com/jordanlanch/prospectroute/pkg/database/dbtest"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTerritory(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	service := NewService(db)

	user := dbtest.CreateUser(t, db, "manager@test.com", "user", nil)
	other := dbtest.CreateUser(t, db, "other@test.com", "user", nil)

	t.Run("Success - Create territory", func(t *testing.T) {
		result, err := service.CreateTerritory(ctx, user, CreateTerritoryRequest{Name: "  North   Georgia "})

		require.NoError(t, err)
		assert.Equal(t, "North Georgia", result.Name)
		assert.True(t, result.Active)
		assert.Equal(t, user, result.UserID)
	})

	t.Run("Error - Empty name", func(t *testing.T) {
		_, err := service.CreateTerritory(ctx, user, CreateTerritoryRequest{Name: "   "})

		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - Duplicate name differing only in case", func(t *testing.T) {
		_, err := service.CreateTerritory(ctx, user, CreateTerritoryRequest{Name: "NORTH georgia"})

		assert.True(t, domain.IsConflict(err))
	})

	t.Run("Success - Same name for another user", func(t *testing.T) {
		result, err := service.CreateTerritory(ctx, other, CreateTerritoryRequest{Name: "North Georgia"})

		require.NoError(t, err)
		assert.Equal(t, other, result.UserID)
	})
}

func TestListAndToggle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	service := NewService(db)

	user := dbtest.CreateUser(t, db, "rep@test.com", "user", nil)
	south, err := service.CreateTerritory(ctx, user, CreateTerritoryRequest{Name: "South"})
	require.NoError(t, err)
	_, err = service.CreateTerritory(ctx, user, CreateTerritoryRequest{Name: "east"})
	require.NoError(t, err)

	all, err := service.ListTerritories(ctx, user, ListTerritoriesFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "east", all[0].Name)

	updated, err := service.SetActive(ctx, user, south.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	active, err := service.ListTerritories(ctx, user, ListTerritoriesFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "east", active[0].Name)

	t.Run("Error - toggling another user's territory", func(t *testing.T) {
		intruder := dbtest.CreateUser(t, db, "intruder@test.com", "user", nil)
		_, err := service.SetActive(ctx, intruder, south.ID, true)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("École  Nord"), NameKey("éCOLE nord"))
	assert.NotEqual(t, NameKey("North"), NameKey("South"))
}
