package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	row := userRow{Name: user.Name, Email: user.Email}
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	user.ID = row.ID
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	res := s.conn(ctx).Model(&userRow{}).Where("id = ?", user.ID).
		Updates(map[string]any{"name": user.Name, "email": user.Email})
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", translate(res.Error))
	}
	return expectRow(res, "user")
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var row userRow
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return toUser(&row), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := s.conn(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return toUser(&row), nil
}

func (s *Store) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := s.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, toUser(&rows[i]))
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res := s.conn(ctx).Delete(&userRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", translate(res.Error))
	}
	return expectRow(res, "user")
}

func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	row := fromItem(item)
	if err := s.conn(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", translate(err))
	}
	item.ID = row.ID
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	res := s.conn(ctx).Model(&itemRow{}).Where("id = ?", item.ID).Updates(map[string]any{
		"name":        item.Name,
		"description": item.Description,
		"available":   item.Available,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update item: %w", translate(res.Error))
	}
	return expectRow(res, "item")
}

func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var row itemRow
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return toItem(&row), nil
}

func (s *Store) GetItemsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]*models.Item, error) {
	return s.findItems(s.conn(ctx).Where("owner_id = ?", ownerID).Order("id").Offset(offset).Limit(limit))
}

func (s *Store) SearchItems(ctx context.Context, text string, offset, limit int) ([]*models.Item, error) {
	return s.findItems(s.searchQuery(ctx, text, offset, limit))
}

func (s *Store) searchQuery(ctx context.Context, text string, offset, limit int) *gorm.DB {
	pattern := "%" + database.EscapeLike(strings.ToLower(text)) + "%"
	return s.conn(ctx).
		Where("available AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern).
		Order("id").Offset(offset).Limit(limit)
}

func (s *Store) GetItemsByRequestIDs(ctx context.Context, requestIDs []int64) ([]*models.Item, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	return s.findItems(s.conn(ctx).Where("request_id IN ?", requestIDs).Order("id"))
}

func (s *Store) findItems(q *gorm.DB) ([]*models.Item, error) {
	var rows []itemRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	items := make([]*models.Item, 0, len(rows))
	for i := range rows {
		items = append(items, toItem(&rows[i]))
	}
	return items, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	row := bookingRow{
		StartTime: booking.Start.UTC(),
		EndTime:   booking.End.UTC(),
		ItemID:    booking.ItemID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
	}
	if err := s.conn(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", translate(err))
	}
	booking.ID = row.ID
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	bookings, err := s.findBookings(s.bookingQuery(ctx).Where("b.id = ?", id))
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return bookings[0], nil
}

func (s *Store) TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	res := s.transition(ctx, id, from, to)
	if res.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// transition updates the status only while the booking is still in from.
func (s *Store) transition(ctx context.Context, id int64, from, to models.BookingStatus) *gorm.DB {
	return s.conn(ctx).Model(&bookingRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
}

func (s *Store) FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	return s.findBookings(s.filterQuery(ctx, filter))
}

func (s *Store) filterQuery(ctx context.Context, filter models.BookingFilter) *gorm.DB {
	q := s.bookingQuery(ctx)
	if filter.BookerID != 0 {
		q = q.Where("b.booker_id = ?", filter.BookerID)
	}
	if filter.OwnerID != 0 {
		q = q.Where("i.owner_id = ?", filter.OwnerID)
	}
	q = applyState(q, filter.State, filter.Now.UTC())
	q = q.Order("b.start_time DESC").Order("b.id DESC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}
	return q
}

func applyState(q *gorm.DB, state models.State, now time.Time) *gorm.DB {
	switch state {
	case models.StateCurrent:
		return q.Where("b.start_time <= ? AND b.end_time >= ?", now, now)
	case models.StatePast:
		return q.Where("b.end_time < ?", now)
	case models.StateFuture:
		return q.Where("b.start_time > ?", now)
	case models.StateWaiting:
		return q.Where("b.status = ?", string(models.StatusWaiting))
	case models.StateRejected:
		return q.Where("b.status = ?", string(models.StatusRejected))
	}
	return q
}

func (s *Store) GetLastBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	return s.findBookings(s.firstPerItemQuery(ctx, itemIDs, "b.start_time <= ?", "DESC", now))
}

func (s *Store) GetNextBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	return s.findBookings(s.firstPerItemQuery(ctx, itemIDs, "b.start_time > ?", "ASC", now))
}

// firstPerItemQuery keeps one approved booking per item, the first by start
// time in dir.
func (s *Store) firstPerItemQuery(ctx context.Context, itemIDs []int64, cond, dir string, now time.Time) *gorm.DB {
	return s.conn(ctx).Table("bookings AS b").
		Select("DISTINCT ON (b.item_id) "+bookingColumns).
		Joins(bookingJoins).
		Where("b.item_id IN ? AND b.status = ?", itemIDs, string(models.StatusApproved)).
		Where(cond, now.UTC()).
		Order("b.item_id").Order("b.start_time " + dir).Order("b.id " + dir)
}

func (s *Store) HasCompletedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&bookingRow{}).
		Where("booker_id = ? AND item_id = ? AND status = ? AND end_time < ?", bookerID, itemID, string(models.StatusApproved), now.UTC()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return count > 0, nil
}

const (
	bookingColumns = "b.id, b.start_time, b.end_time, b.item_id, i.name AS item_name, i.owner_id, b.booker_id, u.name AS booker_name, b.status"
	bookingJoins   = "JOIN items i ON i.id = b.item_id JOIN users u ON u.id = b.booker_id"
)

func (s *Store) bookingQuery(ctx context.Context) *gorm.DB {
	return s.conn(ctx).Table("bookings AS b").Select(bookingColumns).Joins(bookingJoins)
}

func (s *Store) findBookings(q *gorm.DB) ([]*models.Booking, error) {
	var views []bookingView
	if err := q.Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	bookings := make([]*models.Booking, 0, len(views))
	for i := range views {
		bookings = append(bookings, views[i].toModel())
	}
	return bookings, nil
}

func (s *Store) CreateRequest(ctx context.Context, request *models.ItemRequest) error {
	row := requestRow{Description: request.Description, RequesterID: request.RequesterID, Created: request.Created.UTC()}
	if err := s.conn(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create request: %w", translate(err))
	}
	request.ID = row.ID
	return nil
}

func (s *Store) GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	var row requestRow
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return toRequest(&row), nil
}

func (s *Store) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	return s.findRequests(s.conn(ctx).Where("requester_id = ?", requesterID).Order("created ASC").Order("id ASC"))
}

func (s *Store) GetRequestsExcluding(ctx context.Context, requesterID int64, offset, limit int) ([]*models.ItemRequest, error) {
	q := s.conn(ctx).Where("requester_id <> ?", requesterID).
		Order("created DESC").Order("id DESC").Offset(offset).Limit(limit)
	return s.findRequests(q)
}

func (s *Store) findRequests(q *gorm.DB) ([]*models.ItemRequest, error) {
	var rows []requestRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}
	requests := make([]*models.ItemRequest, 0, len(rows))
	for i := range rows {
		requests = append(requests, toRequest(&rows[i]))
	}
	return requests, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	row := commentRow{Text: comment.Text, ItemID: comment.ItemID, AuthorID: comment.AuthorID, Created: comment.Created.UTC()}
	if err := s.conn(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", translate(err))
	}
	comment.ID = row.ID
	return nil
}

func (s *Store) GetCommentsByItemIDs(ctx context.Context, itemIDs []int64) ([]*models.Comment, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var views []commentView
	err := s.commentsQuery(ctx, itemIDs).Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	comments := make([]*models.Comment, 0, len(views))
	for i := range views {
		comments = append(comments, views[i].toModel())
	}
	return comments, nil
}

func (s *Store) commentsQuery(ctx context.Context, itemIDs []int64) *gorm.DB {
	return s.conn(ctx).Table("comments AS c").
		Select("c.id, c.text, c.item_id, c.author_id, u.name AS author_name, c.created").
		Joins("JOIN users u ON u.id = c.author_id").
		Where("c.item_id IN ?", itemIDs).
		Order("c.created ASC").Order("c.id ASC")
}

func expectRow(res *gorm.DB, entity string) error {
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", entity, domain.ErrRecordNotFound)
	}
	return nil
}
