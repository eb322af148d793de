package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

var _ domain.UserService = (*UserService)(nil)

func NewUserService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := &models.User{Name: user.Name, Email: user.Email}
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailFree(ctx, created.Email, 0); err != nil {
			return err
		}
		err := s.repo.CreateUser(ctx, created)
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.Conflict("User with email %s already exists.", created.Email)
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.eventBus, s.logger, events.EventUserCreated, "user_id", created.ID, events.UserEventPayload{UserID: created.ID})
	return created, nil
}

// Update applies a partial update. Blank fields are left unchanged.
func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		patch.Name = nil
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) == "" {
		patch.Email = nil
	}

	var user *models.User
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = findUser(ctx, s.repo, id)
		if err != nil {
			return err
		}
		if patch.Email != nil && *patch.Email != user.Email {
			if err := s.ensureEmailFree(ctx, *patch.Email, id); err != nil {
				return err
			}
		}

		patch.Apply(user)
		err = s.repo.UpdateUser(ctx, user)
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.Conflict("User with email %s already exists.", user.Email)
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return findUser(ctx, s.repo, id)
}

func (s *UserService) GetAll(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return users, nil
}

// Delete removes a user that owns, booked, requested and commented nothing.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.RunInTx(ctx, func(ctx context.Context) error {
		err := s.repo.DeleteUser(ctx, id)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return domain.NotFound("User with %d id not found.", id)
		case errors.Is(err, domain.ErrReferenced):
			return domain.Conflict("User with %d id is still referenced.", id)
		case err != nil:
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		return nil
	})
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, except int64) error {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user by email: %w", err)
	}
	if existing.ID != except {
		return domain.Conflict("User with email %s already exists.", email)
	}
	return nil
}
