package models

import "time"

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// Resolved reports whether the status is terminal.
func (s BookingStatus) Resolved() bool {
	return s == StatusApproved || s == StatusRejected
}

// Booking is the persisted reservation of an item. ItemName, OwnerID and
// BookerName are filled from joined rows on read and are never written.
type Booking struct {
	ID         int64         `json:"id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	ItemID     int64         `json:"item_id"`
	ItemName   string        `json:"item_name"`
	OwnerID    int64         `json:"owner_id"`
	BookerID   int64         `json:"booker_id"`
	BookerName string        `json:"booker_name"`
	Status     BookingStatus `json:"status"`
}

// Short strips a booking down to what an item view exposes.
func (b *Booking) Short() *BookingShort {
	if b == nil {
		return nil
	}
	return &BookingShort{ID: b.ID, Start: b.Start, End: b.End, BookerID: b.BookerID}
}

type BookingShort struct {
	ID       int64     `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	BookerID int64     `json:"booker_id"`
}

// BookingWindow is the requested [Start, End) interval of a new booking.
type BookingWindow struct {
	Start time.Time
	End   time.Time
}

func (w BookingWindow) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.Start.Before(w.End)
}

// BookingFilter selects bookings either by booker or by item owner.
type BookingFilter struct {
	BookerID int64
	OwnerID  int64
	State    State
	Now      time.Time
	Offset   int
	Limit    int
}

// Page is an offset/limit pair as sent by clients: From is an element offset,
// Size is the page length.
type Page struct {
	From int
	Size int
}

// Offset rounds From down to a page boundary.
func (p Page) Offset() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.From / p.Size) * p.Size
}
