package postgres

import (
	"time"

	"shareit/internal/models"
)

type userRow struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"not null"`
	Email string `gorm:"not null;uniqueIndex"`
}

func (userRow) TableName() string { return "users" }

type requestRow struct {
	ID          int64     `gorm:"primaryKey"`
	Description string    `gorm:"not null"`
	RequesterID int64     `gorm:"not null;index"`
	Requester   userRow   `gorm:"foreignKey:RequesterID"`
	Created     time.Time `gorm:"not null"`
}

func (requestRow) TableName() string { return "requests" }

type itemRow struct {
	ID          int64       `gorm:"primaryKey"`
	Name        string      `gorm:"not null"`
	Description string      `gorm:"not null"`
	Available   bool        `gorm:"not null"`
	OwnerID     int64       `gorm:"not null;index"`
	Owner       userRow     `gorm:"foreignKey:OwnerID"`
	RequestID   *int64      `gorm:"index"`
	Request     *requestRow `gorm:"foreignKey:RequestID"`
}

func (itemRow) TableName() string { return "items" }

type bookingRow struct {
	ID        int64     `gorm:"primaryKey"`
	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`
	ItemID    int64     `gorm:"not null;index"`
	Item      itemRow   `gorm:"foreignKey:ItemID"`
	BookerID  int64     `gorm:"not null;index"`
	Booker    userRow   `gorm:"foreignKey:BookerID"`
	Status    string    `gorm:"size:16;not null"`
}

func (bookingRow) TableName() string { return "bookings" }

type commentRow struct {
	ID       int64     `gorm:"primaryKey"`
	Text     string    `gorm:"not null"`
	ItemID   int64     `gorm:"not null;index"`
	Item     itemRow   `gorm:"foreignKey:ItemID"`
	AuthorID int64     `gorm:"not null"`
	Author   userRow   `gorm:"foreignKey:AuthorID"`
	Created  time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "comments" }

// bookingView is a booking joined with its item and booker.
type bookingView struct {
	ID         int64
	StartTime  time.Time
	EndTime    time.Time
	ItemID     int64
	ItemName   string
	OwnerID    int64
	BookerID   int64
	BookerName string
	Status     string
}

type commentView struct {
	ID         int64
	Text       string
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Created    time.Time
}

func toUser(r *userRow) *models.User {
	return &models.User{ID: r.ID, Name: r.Name, Email: r.Email}
}

func toRequest(r *requestRow) *models.ItemRequest {
	return &models.ItemRequest{ID: r.ID, Description: r.Description, RequesterID: r.RequesterID, Created: r.Created}
}

func toItem(r *itemRow) *models.Item {
	return &models.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Available:   r.Available,
		OwnerID:     r.OwnerID,
		RequestID:   r.RequestID,
	}
}

func fromItem(item *models.Item) *itemRow {
	return &itemRow{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Available:   item.Available,
		OwnerID:     item.OwnerID,
		RequestID:   item.RequestID,
	}
}

func (v *bookingView) toModel() *models.Booking {
	return &models.Booking{
		ID:         v.ID,
		Start:      v.StartTime,
		End:        v.EndTime,
		ItemID:     v.ItemID,
		ItemName:   v.ItemName,
		OwnerID:    v.OwnerID,
		BookerID:   v.BookerID,
		BookerName: v.BookerName,
		Status:     models.BookingStatus(v.Status),
	}
}

func (v *commentView) toModel() *models.Comment {
	return &models.Comment{
		ID:         v.ID,
		Text:       v.Text,
		ItemID:     v.ItemID,
		AuthorID:   v.AuthorID,
		AuthorName: v.AuthorName,
		Created:    v.Created,
	}
}
