package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.ItemService = (*ItemService)(nil)

func NewItemService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// Create lists a new item for the owner, optionally answering a request.
func (s *ItemService) Create(ctx context.Context, ownerID int64, item *models.Item, requestID *int64) (*models.Item, error) {
	created := *item
	created.ID = 0
	created.OwnerID = ownerID
	created.RequestID = nil

	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := findUser(ctx, s.repo, ownerID); err != nil {
			return err
		}
		if requestID != nil {
			request, err := findRequest(ctx, s.repo, *requestID)
			if err != nil {
				return err
			}
			id := request.ID
			created.RequestID = &id
		}
		if err := s.repo.CreateItem(ctx, &created); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventItemCreated, &created)
	return &created, nil
}

// Update applies a partial update. Only the owner may change an item.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	var item *models.Item
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := findUser(ctx, s.repo, ownerID); err != nil {
			return err
		}
		var err error
		item, err = findItem(ctx, s.repo, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != ownerID {
			return domain.NotFound("Owners don't match.")
		}

		patch.Apply(item)
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventItemUpdated, item)
	return item, nil
}

// GetByID returns the item with its comments. Booking neighbours are only
// filled in for the owner.
func (s *ItemService) GetByID(ctx context.Context, callerID, itemID int64) (*models.ItemView, error) {
	if _, err := findUser(ctx, s.repo, callerID); err != nil {
		return nil, err
	}
	item, err := findItem(ctx, s.repo, itemID)
	if err != nil {
		return nil, err
	}

	views, err := s.decorate(ctx, []*models.Item{item}, item.OwnerID == callerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *ItemService) GetAllByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemView, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.repo, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID, page.Offset(), page.Size)
	if err != nil {
		return nil, fmt.Errorf("get items by owner: %w", err)
	}
	return s.decorate(ctx, items, true)
}

// Search matches available items by name or description. Blank text finds
// nothing.
func (s *ItemService) Search(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}

	items, err := s.repo.SearchItems(ctx, text, page.Offset(), page.Size)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

// CreateComment accepts a comment from a user who has finished an approved
// booking of the item.
func (s *ItemService) CreateComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	var comment *models.Comment
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		author, err := findUser(ctx, s.repo, authorID)
		if err != nil {
			return err
		}
		item, err := findItem(ctx, s.repo, itemID)
		if err != nil {
			return err
		}

		now := s.now()
		ok, err := s.repo.HasCompletedBooking(ctx, author.ID, item.ID, now)
		if err != nil {
			return fmt.Errorf("check completed booking: %w", err)
		}
		if !ok {
			return domain.Validation("Refused access to add comment.")
		}

		comment = &models.Comment{
			Text:       text,
			ItemID:     item.ID,
			AuthorID:   author.ID,
			AuthorName: author.Name,
			Created:    now,
		}
		if err := s.repo.CreateComment(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.eventBus, s.logger, events.EventCommentCreated, "comment_id", comment.ID,
		events.CommentEventPayload{CommentID: comment.ID, ItemID: comment.ItemID, AuthorID: comment.AuthorID})
	return comment, nil
}

// decorate attaches comments to every item and, when withBookings is set,
// the last and next approved bookings. It issues one query per concern for
// the whole batch.
func (s *ItemService) decorate(ctx context.Context, items []*models.Item, withBookings bool) ([]*models.ItemView, error) {
	views := make([]*models.ItemView, 0, len(items))
	if len(items) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	comments, err := s.repo.GetCommentsByItemIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	byItem := make(map[int64][]*models.Comment, len(items))
	for _, c := range comments {
		byItem[c.ItemID] = append(byItem[c.ItemID], c)
	}

	var last, next map[int64]*models.Booking
	if withBookings {
		now := s.now()
		lastBookings, err := s.repo.GetLastBookings(ctx, ids, now)
		if err != nil {
			return nil, fmt.Errorf("get last bookings: %w", err)
		}
		nextBookings, err := s.repo.GetNextBookings(ctx, ids, now)
		if err != nil {
			return nil, fmt.Errorf("get next bookings: %w", err)
		}
		last = firstPerItem(lastBookings)
		next = firstPerItem(nextBookings)
	}

	for _, item := range items {
		view := &models.ItemView{Item: *item, Comments: byItem[item.ID]}
		if view.Comments == nil {
			view.Comments = []*models.Comment{}
		}
		if withBookings {
			view.LastBooking = last[item.ID].Short()
			view.NextBooking = next[item.ID].Short()
		}
		views = append(views, view)
	}
	return views, nil
}

// firstPerItem keeps the first booking of each item from an ordered list.
func firstPerItem(bookings []*models.Booking) map[int64]*models.Booking {
	out := make(map[int64]*models.Booking)
	for _, b := range bookings {
		if _, ok := out[b.ItemID]; !ok {
			out[b.ItemID] = b
		}
	}
	return out
}

func (s *ItemService) publishEvent(eventType string, item *models.Item) {
	payload := events.ItemEventPayload{
		ItemID:    item.ID,
		OwnerID:   item.OwnerID,
		Name:      item.Name,
		Available: item.Available,
		RequestID: item.RequestID,
	}
	publish(s.eventBus, s.logger, eventType, "item_id", item.ID, payload)
}
