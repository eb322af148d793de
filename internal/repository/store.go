package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

var _ domain.Repository = (*MemoryStore)(nil)

// MemoryStore keeps every entity in maps. RunInTx serializes transactions and
// restores the pre-transaction snapshot when fn fails. Calls made outside a
// transaction are individually atomic.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	users    map[int64]models.User
	items    map[int64]models.Item
	bookings map[int64]models.Booking
	requests map[int64]models.ItemRequest
	comments map[int64]models.Comment
	lastID   int64
}

type memTxKey struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		users:    make(map[int64]models.User),
		items:    make(map[int64]models.Item),
		bookings: make(map[int64]models.Booking),
		requests: make(map[int64]models.ItemRequest),
		comments: make(map[int64]models.Comment),
	}}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (d memoryData) clone() memoryData {
	c := memoryData{
		users:    make(map[int64]models.User, len(d.users)),
		items:    make(map[int64]models.Item, len(d.items)),
		bookings: make(map[int64]models.Booking, len(d.bookings)),
		requests: make(map[int64]models.ItemRequest, len(d.requests)),
		comments: make(map[int64]models.Comment, len(d.comments)),
		lastID:   d.lastID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	return c
}

func (s *MemoryStore) nextID() int64 {
	s.data.lastID++
	return s.data.lastID
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, 0) {
		return fmt.Errorf("%w: email %s", domain.ErrDuplicate, user.Email)
	}
	user.ID = s.nextID()
	s.data.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[user.ID]; !ok {
		return fmt.Errorf("user: %w", domain.ErrRecordNotFound)
	}
	if s.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("%w: email %s", domain.ErrDuplicate, user.Email)
	}
	s.data.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) emailTaken(email string, except int64) bool {
	for id, u := range s.data.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (s *MemoryStore) GetAllUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[id]; !ok {
		return fmt.Errorf("user: %w", domain.ErrRecordNotFound)
	}
	if s.userReferenced(id) {
		return fmt.Errorf("%w: user %d", domain.ErrReferenced, id)
	}
	delete(s.data.users, id)
	return nil
}

func (s *MemoryStore) userReferenced(id int64) bool {
	for _, it := range s.data.items {
		if it.OwnerID == id {
			return true
		}
	}
	for _, b := range s.data.bookings {
		if b.BookerID == id {
			return true
		}
	}
	for _, r := range s.data.requests {
		if r.RequesterID == id {
			return true
		}
	}
	for _, c := range s.data.comments {
		if c.AuthorID == id {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[item.OwnerID]; !ok {
		return fmt.Errorf("%w: owner %d", domain.ErrReferenced, item.OwnerID)
	}
	if item.RequestID != nil {
		if _, ok := s.data.requests[*item.RequestID]; !ok {
			return fmt.Errorf("%w: request %d", domain.ErrReferenced, *item.RequestID)
		}
	}
	item.ID = s.nextID()
	s.data.items[item.ID] = cloneItem(*item)
	return nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data.items[item.ID]
	if !ok {
		return fmt.Errorf("item: %w", domain.ErrRecordNotFound)
	}
	stored.Name = item.Name
	stored.Description = item.Description
	stored.Available = item.Available
	s.data.items[item.ID] = stored
	return nil
}

func (s *MemoryStore) GetItemByID(_ context.Context, id int64) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.data.items[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	it = cloneItem(it)
	return &it, nil
}

func (s *MemoryStore) GetItemsByOwner(_ context.Context, ownerID int64, offset, limit int) ([]*models.Item, error) {
	return s.filterItems(func(it models.Item) bool { return it.OwnerID == ownerID }, offset, limit), nil
}

func (s *MemoryStore) SearchItems(_ context.Context, text string, offset, limit int) ([]*models.Item, error) {
	needle := strings.ToLower(text)
	return s.filterItems(func(it models.Item) bool {
		return it.Available &&
			(strings.Contains(strings.ToLower(it.Name), needle) || strings.Contains(strings.ToLower(it.Description), needle))
	}, offset, limit), nil
}

func (s *MemoryStore) GetItemsByRequestIDs(_ context.Context, requestIDs []int64) ([]*models.Item, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[int64]struct{}, len(requestIDs))
	for _, id := range requestIDs {
		wanted[id] = struct{}{}
	}
	return s.filterItems(func(it models.Item) bool {
		if it.RequestID == nil {
			return false
		}
		_, ok := wanted[*it.RequestID]
		return ok
	}, 0, 0), nil
}

// filterItems returns matching items ordered by id. A non-positive limit
// returns everything after offset.
func (s *MemoryStore) filterItems(match func(models.Item) bool, offset, limit int) []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*models.Item
	for _, it := range s.data.items {
		if match(it) {
			it = cloneItem(it)
			items = append(items, &it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return paginate(items, offset, limit)
}

func cloneItem(it models.Item) models.Item {
	if it.RequestID != nil {
		id := *it.RequestID
		it.RequestID = &id
	}
	return it
}

func (s *MemoryStore) CreateBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.items[booking.ItemID]; !ok {
		return fmt.Errorf("%w: item %d", domain.ErrReferenced, booking.ItemID)
	}
	if _, ok := s.data.users[booking.BookerID]; !ok {
		return fmt.Errorf("%w: booker %d", domain.ErrReferenced, booking.BookerID)
	}
	booking.ID = s.nextID()
	stored := *booking
	stored.ItemName, stored.OwnerID, stored.BookerName = "", 0, ""
	s.data.bookings[booking.ID] = stored
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data.bookings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return s.joinBooking(b), nil
}

func (s *MemoryStore) TransitionBookingStatus(_ context.Context, id int64, from, to models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data.bookings[id]
	if !ok || b.Status != from {
		return domain.ErrConcurrentModification
	}
	b.Status = to
	s.data.bookings[id] = b
	return nil
}

func (s *MemoryStore) FindBookings(_ context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	bookings := s.filterBookings(func(b *models.Booking) bool {
		if filter.BookerID != 0 && b.BookerID != filter.BookerID {
			return false
		}
		if filter.OwnerID != 0 && b.OwnerID != filter.OwnerID {
			return false
		}
		return filter.State.Matches(b, filter.Now)
	})
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].Start.After(bookings[j].Start)
		}
		return bookings[i].ID > bookings[j].ID
	})
	return paginate(bookings, filter.Offset, filter.Limit), nil
}

func (s *MemoryStore) GetLastBookings(_ context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in := idSet(itemIDs)
	bookings := s.filterBookings(func(b *models.Booking) bool {
		_, ok := in[b.ItemID]
		return ok && b.Status == models.StatusApproved && !b.Start.After(now)
	})
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].Start.After(bookings[j].Start)
		}
		return bookings[i].ID > bookings[j].ID
	})
	return firstPerItem(bookings), nil
}

func (s *MemoryStore) GetNextBookings(_ context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in := idSet(itemIDs)
	bookings := s.filterBookings(func(b *models.Booking) bool {
		_, ok := in[b.ItemID]
		return ok && b.Status == models.StatusApproved && b.Start.After(now)
	})
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].Start.Before(bookings[j].Start)
		}
		return bookings[i].ID < bookings[j].ID
	})
	return firstPerItem(bookings), nil
}

func (s *MemoryStore) HasCompletedBooking(_ context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.data.bookings {
		if b.BookerID == bookerID && b.ItemID == itemID && b.Status == models.StatusApproved && b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

// firstPerItem keeps the first booking of every item, preserving order.
func firstPerItem(bookings []*models.Booking) []*models.Booking {
	seen := make(map[int64]bool, len(bookings))
	out := bookings[:0]
	for _, b := range bookings {
		if !seen[b.ItemID] {
			seen[b.ItemID] = true
			out = append(out, b)
		}
	}
	return out
}

func (s *MemoryStore) filterBookings(match func(*models.Booking) bool) []*models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []*models.Booking
	for _, b := range s.data.bookings {
		joined := s.joinBooking(b)
		if match(joined) {
			bookings = append(bookings, joined)
		}
	}
	return bookings
}

func (s *MemoryStore) joinBooking(b models.Booking) *models.Booking {
	if it, ok := s.data.items[b.ItemID]; ok {
		b.ItemName = it.Name
		b.OwnerID = it.OwnerID
	}
	if u, ok := s.data.users[b.BookerID]; ok {
		b.BookerName = u.Name
	}
	return &b
}

func (s *MemoryStore) CreateRequest(_ context.Context, request *models.ItemRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[request.RequesterID]; !ok {
		return fmt.Errorf("%w: requester %d", domain.ErrReferenced, request.RequesterID)
	}
	request.ID = s.nextID()
	s.data.requests[request.ID] = *request
	return nil
}

func (s *MemoryStore) GetRequestByID(_ context.Context, id int64) (*models.ItemRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data.requests[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetRequestsByRequester(_ context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	requests := s.filterRequests(func(r models.ItemRequest) bool { return r.RequesterID == requesterID })
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].Created.Equal(requests[j].Created) {
			return requests[i].Created.Before(requests[j].Created)
		}
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}

func (s *MemoryStore) GetRequestsExcluding(_ context.Context, requesterID int64, offset, limit int) ([]*models.ItemRequest, error) {
	requests := s.filterRequests(func(r models.ItemRequest) bool { return r.RequesterID != requesterID })
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].Created.Equal(requests[j].Created) {
			return requests[i].Created.After(requests[j].Created)
		}
		return requests[i].ID > requests[j].ID
	})
	return paginate(requests, offset, limit), nil
}

func (s *MemoryStore) filterRequests(match func(models.ItemRequest) bool) []*models.ItemRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var requests []*models.ItemRequest
	for _, r := range s.data.requests {
		if match(r) {
			r := r
			requests = append(requests, &r)
		}
	}
	return requests
}

func (s *MemoryStore) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.items[comment.ItemID]; !ok {
		return fmt.Errorf("%w: item %d", domain.ErrReferenced, comment.ItemID)
	}
	if _, ok := s.data.users[comment.AuthorID]; !ok {
		return fmt.Errorf("%w: author %d", domain.ErrReferenced, comment.AuthorID)
	}
	comment.ID = s.nextID()
	stored := *comment
	stored.AuthorName = ""
	s.data.comments[comment.ID] = stored
	return nil
}

func (s *MemoryStore) GetCommentsByItemIDs(_ context.Context, itemIDs []int64) ([]*models.Comment, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in := idSet(itemIDs)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []*models.Comment
	for _, c := range s.data.comments {
		if _, ok := in[c.ItemID]; !ok {
			continue
		}
		if u, ok := s.data.users[c.AuthorID]; ok {
			c.AuthorName = u.Name
		}
		c := c
		comments = append(comments, &c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.Before(comments[j].Created)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
