package api

import (
	"time"

	"shareit/internal/models"
)

type userRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type itemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
	RequestID   *int64  `json:"requestId"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type bookingRequest struct {
	ItemID int64            `json:"itemId"`
	Start  models.Timestamp `json:"start"`
	End    models.Timestamp `json:"end"`
}

type requestRequest struct {
	Description string `json:"description"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   *int64 `json:"requestId"`
}

type itemViewResponse struct {
	itemResponse
	LastBooking *bookingShortResponse `json:"lastBooking"`
	NextBooking *bookingShortResponse `json:"nextBooking"`
	Comments    []commentResponse     `json:"comments"`
}

type bookingShortResponse struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"bookerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type refResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type bookingResponse struct {
	ID     int64       `json:"id"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Status string      `json:"status"`
	Booker refResponse `json:"booker"`
	Item   refResponse `json:"item"`
}

type commentResponse struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	Created    time.Time `json:"created"`
}

type requestResponse struct {
	ID          int64          `json:"id"`
	Description string         `json:"description"`
	Created     time.Time      `json:"created"`
	Items       []itemResponse `json:"items"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toItemResponse(it *models.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Available:   it.Available,
		RequestID:   it.RequestID,
	}
}

func toItemViewResponse(v *models.ItemView) itemViewResponse {
	comments := make([]commentResponse, 0, len(v.Comments))
	for _, c := range v.Comments {
		comments = append(comments, toCommentResponse(c))
	}
	return itemViewResponse{
		itemResponse: toItemResponse(&v.Item),
		LastBooking:  toBookingShortResponse(v.LastBooking),
		NextBooking:  toBookingShortResponse(v.NextBooking),
		Comments:     comments,
	}
}

func toBookingShortResponse(b *models.BookingShort) *bookingShortResponse {
	if b == nil {
		return nil
	}
	return &bookingShortResponse{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:     b.ID,
		Start:  b.Start,
		End:    b.End,
		Status: string(b.Status),
		Booker: refResponse{ID: b.BookerID, Name: b.BookerName},
		Item:   refResponse{ID: b.ItemID, Name: b.ItemName},
	}
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{ID: c.ID, Text: c.Text, AuthorName: c.AuthorName, Created: c.Created}
}

func toRequestResponse(v *models.RequestView) requestResponse {
	items := make([]itemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, toItemResponse(it))
	}
	return requestResponse{ID: v.ID, Description: v.Description, Created: v.Created, Items: items}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
