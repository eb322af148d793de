package models

type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	OwnerID     int64  `json:"owner_id"`
	RequestID   *int64 `json:"request_id,omitempty"`
}

// ItemPatch carries the optional fields of a partial item update.
type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
}

// ItemView is an item decorated for a single read. LastBooking and NextBooking
// are only set when the reader owns the item.
type ItemView struct {
	Item
	LastBooking *BookingShort
	NextBooking *BookingShort
	Comments    []*Comment
}
