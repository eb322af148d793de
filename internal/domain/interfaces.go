package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

// TxRunner executes fn atomically. Repository calls made with the context
// passed to fn join the same transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string, offset, limit int) ([]*models.Item, error)
	GetItemsByRequestIDs(ctx context.Context, requestIDs []int64) ([]*models.Item, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// TransitionBookingStatus moves a booking from one status to another and
	// returns ErrConcurrentModification when the booking is not in from.
	TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error
	FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	// GetLastBookings returns, per item, the latest approved booking that
	// started at or before now. Items without one are absent.
	GetLastBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error)
	// GetNextBookings returns, per item, the earliest approved booking that
	// starts after now.
	GetNextBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error)
	HasCompletedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, request *models.ItemRequest) error
	GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetRequestsExcluding(ctx context.Context, requesterID int64, offset, limit int) ([]*models.ItemRequest, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItemIDs(ctx context.Context, itemIDs []int64) ([]*models.Comment, error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	TxRunner
	UserRepository
	ItemRepository
	BookingRepository
	RequestRepository
	CommentRepository
	Ping(ctx context.Context) error
	Close() error
}

// RateLimiter counts requests per caller within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	Create(ctx context.Context, bookerID, itemID int64, window models.BookingWindow) (*models.Booking, error)
	ConfirmRequest(ctx context.Context, ownerID, bookingID int64, approve bool) (*models.Booking, error)
	GetByID(ctx context.Context, callerID, bookingID int64) (*models.Booking, error)
	GetAllByUser(ctx context.Context, bookerID int64, state models.State, page models.Page) ([]*models.Booking, error)
	GetAllByOwner(ctx context.Context, ownerID int64, state models.State, page models.Page) ([]*models.Booking, error)
}

type ItemService interface {
	Create(ctx context.Context, ownerID int64, item *models.Item, requestID *int64) (*models.Item, error)
	Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error)
	GetByID(ctx context.Context, callerID, itemID int64) (*models.ItemView, error)
	GetAllByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemView, error)
	Search(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
	CreateComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error)
}

type RequestService interface {
	Create(ctx context.Context, requesterID int64, description string) (*models.RequestView, error)
	GetAllByUser(ctx context.Context, userID int64) ([]*models.RequestView, error)
	GetAll(ctx context.Context, userID int64, page models.Page) ([]*models.RequestView, error)
	GetByID(ctx context.Context, userID, requestID int64) (*models.RequestView, error)
}

type UserService interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id int64) error
}
