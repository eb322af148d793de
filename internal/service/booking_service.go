package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.BookingService = (*BookingService)(nil)

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// Create books an item for the given window. New bookings start in WAITING.
func (s *BookingService) Create(ctx context.Context, bookerID, itemID int64, window models.BookingWindow) (*models.Booking, error) {
	var booking *models.Booking
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		booker, err := findUser(ctx, s.repo, bookerID)
		if err != nil {
			return err
		}
		item, err := findItem(ctx, s.repo, itemID)
		if err != nil {
			return err
		}
		if !window.Valid() {
			return domain.Validation("Wrong timecodes.")
		}
		if !item.Available {
			return domain.Validation("Item %s isn't available.", item.Name)
		}
		if item.OwnerID == bookerID {
			return domain.NotFound("Refused access.")
		}

		booking = &models.Booking{
			Start:      window.Start,
			End:        window.End,
			ItemID:     item.ID,
			ItemName:   item.Name,
			OwnerID:    item.OwnerID,
			BookerID:   booker.ID,
			BookerName: booker.Name,
			Status:     models.StatusWaiting,
		}
		if err := s.repo.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, booking, bookerID)
	return booking, nil
}

// ConfirmRequest lets the item owner approve or reject a waiting booking.
func (s *BookingService) ConfirmRequest(ctx context.Context, ownerID, bookingID int64, approve bool) (*models.Booking, error) {
	target := models.StatusRejected
	if approve {
		target = models.StatusApproved
	}

	var booking *models.Booking
	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = findBooking(ctx, s.repo, bookingID)
		if err != nil {
			return err
		}
		if _, err := findUser(ctx, s.repo, ownerID); err != nil {
			return err
		}
		if booking.OwnerID != ownerID {
			return domain.NotFound("Refused access.")
		}
		if booking.Status != models.StatusWaiting {
			return domain.Validation("Booking has %s already.", booking.Status)
		}

		err = s.repo.TransitionBookingStatus(ctx, bookingID, models.StatusWaiting, target)
		if errors.Is(err, domain.ErrConcurrentModification) {
			current, getErr := findBooking(ctx, s.repo, bookingID)
			if getErr != nil {
				return getErr
			}
			return domain.Validation("Booking has %s already.", current.Status)
		}
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		booking.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := events.EventBookingRejected
	if approve {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(eventType, booking, ownerID)
	return booking, nil
}

// GetByID returns a booking to its booker or to the owner of the booked item.
func (s *BookingService) GetByID(ctx context.Context, callerID, bookingID int64) (*models.Booking, error) {
	booking, err := findBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.repo, callerID); err != nil {
		return nil, err
	}
	if booking.BookerID != callerID && booking.OwnerID != callerID {
		return nil, domain.NotFound("Refused access. User or Owner don't match.")
	}
	return booking, nil
}

func (s *BookingService) GetAllByUser(ctx context.Context, bookerID int64, state models.State, page models.Page) ([]*models.Booking, error) {
	return s.list(ctx, bookerID, models.BookingFilter{BookerID: bookerID, State: state}, page)
}

func (s *BookingService) GetAllByOwner(ctx context.Context, ownerID int64, state models.State, page models.Page) ([]*models.Booking, error) {
	return s.list(ctx, ownerID, models.BookingFilter{OwnerID: ownerID, State: state}, page)
}

func (s *BookingService) list(ctx context.Context, userID int64, filter models.BookingFilter, page models.Page) ([]*models.Booking, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}

	filter.Now = s.now()
	filter.Offset = page.Offset()
	filter.Limit = page.Size
	bookings, err := s.repo.FindBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy int64) {
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		OwnerID:   booking.OwnerID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
		ChangedBy: changedBy,
	}
	publish(s.eventBus, s.logger, eventType, "booking_id", booking.ID, payload)
}
