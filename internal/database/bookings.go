package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.start_time, b.end_time, b.item_id, i.name, i.owner_id,
                              b.booker_id, u.name, b.status
                       FROM bookings b
                       JOIN items i ON i.id = b.item_id
                       JOIN users u ON u.id = b.booker_id`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (start_time, end_time, item_id, booker_id, status)
              VALUES (?, ?, ?, ?, ?)`
	result, err := db.conn(ctx).ExecContext(ctx, query,
		booking.Start.UTC(),
		booking.End.UTC(),
		booking.ItemID,
		booking.BookerID,
		booking.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.conn(ctx).QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	query := `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func (db *DB) FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.BookerID != 0 {
		where = append(where, "b.booker_id = ?")
		args = append(args, filter.BookerID)
	}
	if filter.OwnerID != 0 {
		where = append(where, "i.owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	now := filter.Now.UTC()
	switch filter.State {
	case models.StateCurrent:
		where = append(where, "b.start_time <= ? AND b.end_time >= ?")
		args = append(args, now, now)
	case models.StatePast:
		where = append(where, "b.end_time < ?")
		args = append(args, now)
	case models.StateFuture:
		where = append(where, "b.start_time > ?")
		args = append(args, now)
	case models.StateWaiting:
		where = append(where, "b.status = ?")
		args = append(args, models.StatusWaiting)
	case models.StateRejected:
		where = append(where, "b.status = ?")
		args = append(args, models.StatusRejected)
	}

	query := bookingSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.start_time DESC, b.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) GetLastBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	return db.firstApprovedPerItem(ctx, itemIDs, "start_time <= ?", "start_time DESC, id DESC", now)
}

func (db *DB) GetNextBookings(ctx context.Context, itemIDs []int64, now time.Time) ([]*models.Booking, error) {
	return db.firstApprovedPerItem(ctx, itemIDs, "start_time > ?", "start_time ASC, id ASC", now)
}

// firstApprovedPerItem returns, for each item, the first approved booking
// matching cond under order.
func (db *DB) firstApprovedPerItem(ctx context.Context, itemIDs []int64, cond, order string, now time.Time) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := bookingSelect + ` WHERE b.id IN (
                SELECT id FROM (
                    SELECT id, ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY ` + order + `) AS rn
                    FROM bookings
                    WHERE item_id IN (` + placeholders(len(itemIDs)) + `) AND status = ? AND ` + cond + `
                ) WHERE rn = 1
              )
              ORDER BY b.item_id`
	args := append(int64Args(itemIDs), models.StatusApproved, now.UTC())
	return db.queryBookings(ctx, query, args...)
}

func (db *DB) HasCompletedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM bookings
                WHERE booker_id = ? AND item_id = ? AND status = ? AND end_time < ?
              )`
	var exists bool
	err := db.conn(ctx).QueryRowContext(ctx, query, bookerID, itemID, models.StatusApproved, now.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return exists, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.Start, &b.End, &b.ItemID, &b.ItemName, &b.OwnerID, &b.BookerID, &b.BookerName, &status)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	return &b, nil
}
