package models

import "time"

// ItemRequest is a posted need for an item nobody has listed yet.
type ItemRequest struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	RequesterID int64     `json:"requester_id"`
	Created     time.Time `json:"created"`
}

// RequestView is a request together with the items created against it.
type RequestView struct {
	ItemRequest
	Items []*Item
}
