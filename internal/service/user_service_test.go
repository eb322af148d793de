package service

import (
	"context"
	"fmt"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"
	"shareit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	bus := newBus()
	svc := NewUserService(store, bus, newLogger())

	ann, err := svc.Create(ctx, &models.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, ann.ID)
	bus.AssertCalled(t, "PublishJSON", events.EventUserCreated, mock.Anything)

	bob, err := svc.Create(ctx, &models.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := svc.Create(ctx, &models.User{Name: "Ann 2", Email: "ann@example.com"})
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, "User with email ann@example.com already exists.", err.Error())
	})

	t.Run("Update", func(t *testing.T) {
		name := "Anna"
		blank := "  "
		updated, err := svc.Update(ctx, ann.ID, models.UserPatch{Name: &name, Email: &blank})
		require.NoError(t, err)
		assert.Equal(t, "Anna", updated.Name)
		assert.Equal(t, "ann@example.com", updated.Email)

		same := "ann@example.com"
		_, err = svc.Update(ctx, ann.ID, models.UserPatch{Email: &same})
		require.NoError(t, err)

		taken := "bob@example.com"
		_, err = svc.Update(ctx, ann.ID, models.UserPatch{Email: &taken})
		require.ErrorIs(t, err, domain.ErrConflict)

		_, err = svc.Update(ctx, 999, models.UserPatch{Name: &name})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("GetAll", func(t *testing.T) {
		users, err := svc.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, ann.ID, users[0].ID)
		assert.Equal(t, bob.ID, users[1].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		item := &models.Item{Name: "Drill", Description: "d", Available: true, OwnerID: bob.ID}
		require.NoError(t, store.CreateItem(ctx, item))

		err := svc.Delete(ctx, bob.ID)
		require.ErrorIs(t, err, domain.ErrConflict)

		require.NoError(t, svc.Delete(ctx, ann.ID))
		_, err = svc.GetByID(ctx, ann.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, fmt.Sprintf("User with %d id not found.", ann.ID), err.Error())

		err = svc.Delete(ctx, ann.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
