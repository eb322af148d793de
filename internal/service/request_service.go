package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.RequestService = (*RequestService)(nil)

func NewRequestService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *RequestService) Create(ctx context.Context, requesterID int64, description string) (*models.RequestView, error) {
	request := &models.ItemRequest{
		Description: description,
		RequesterID: requesterID,
		Created:     s.now(),
	}
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := findUser(ctx, s.repo, requesterID); err != nil {
			return err
		}
		if err := s.repo.CreateRequest(ctx, request); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.eventBus, s.logger, events.EventRequestCreated, "request_id", request.ID,
		events.RequestEventPayload{RequestID: request.ID, RequesterID: requesterID})
	return &models.RequestView{ItemRequest: *request, Items: []*models.Item{}}, nil
}

// GetAllByUser lists the caller's own requests, oldest first.
func (s *RequestService) GetAllByUser(ctx context.Context, userID int64) ([]*models.RequestView, error) {
	if _, err := findUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}
	requests, err := s.repo.GetRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get requests by requester: %w", err)
	}
	return s.withItems(ctx, requests)
}

// GetAll lists requests posted by other users, newest first.
func (s *RequestService) GetAll(ctx context.Context, userID int64, page models.Page) ([]*models.RequestView, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}
	requests, err := s.repo.GetRequestsExcluding(ctx, userID, page.Offset(), page.Size)
	if err != nil {
		return nil, fmt.Errorf("get requests: %w", err)
	}
	return s.withItems(ctx, requests)
}

func (s *RequestService) GetByID(ctx context.Context, userID, requestID int64) (*models.RequestView, error) {
	if _, err := findUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}
	request, err := findRequest(ctx, s.repo, requestID)
	if err != nil {
		return nil, err
	}
	views, err := s.withItems(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// withItems loads the answering items of all requests in one query.
func (s *RequestService) withItems(ctx context.Context, requests []*models.ItemRequest) ([]*models.RequestView, error) {
	views := make([]*models.RequestView, 0, len(requests))
	if len(requests) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}
	items, err := s.repo.GetItemsByRequestIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items by requests: %w", err)
	}
	byRequest := make(map[int64][]*models.Item, len(requests))
	for _, item := range items {
		if item.RequestID != nil {
			byRequest[*item.RequestID] = append(byRequest[*item.RequestID], item)
		}
	}

	for _, r := range requests {
		view := &models.RequestView{ItemRequest: *r, Items: byRequest[r.ID]}
		if view.Items == nil {
			view.Items = []*models.Item{}
		}
		views = append(views, view)
	}
	return views, nil
}
