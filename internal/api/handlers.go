package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"
)

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Users.

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	user, err := s.svc.Users.Create(r.Context(), &models.User{Name: deref(body.Name), Email: deref(body.Email)})
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body userRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	user, err := s.svc.Users.Update(r.Context(), id, models.UserPatch{Name: body.Name, Email: body.Email})
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	user, err := s.svc.Users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUserResponse))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	if err := s.svc.Users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Items.

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body itemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	item := &models.Item{
		Name:        deref(body.Name),
		Description: deref(body.Description),
		Available:   deref(body.Available),
	}
	created, err := s.svc.Items.Create(r.Context(), userID, item, body.RequestID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(created))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body itemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	patch := models.ItemPatch{Name: body.Name, Description: body.Description, Available: body.Available}
	item, err := s.svc.Items.Update(r.Context(), userID, itemID, patch)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	view, err := s.svc.Items.GetByID(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemViewResponse(view))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	page, err := pageFromQuery(r, s.pageSize)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	views, err := s.svc.Items.GetAllByOwner(r.Context(), userID, page)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(views, toItemViewResponse))
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r, s.pageSize)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	items, err := s.svc.Items.Search(r.Context(), r.URL.Query().Get("text"), page)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(items, toItemResponse))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body commentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	comment, err := s.svc.Items.CreateComment(r.Context(), userID, itemID, body.Text)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(comment))
}

// Bookings.

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body bookingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	window := models.BookingWindow{Start: body.Start.Time, End: body.End.Time}
	booking, err := s.svc.Bookings.Create(r.Context(), userID, body.ItemID, window)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("approved"))
	approved, err := strconv.ParseBool(raw)
	if err != nil {
		writeServiceError(w, r, s.logger, domain.Validation("Invalid approved: %s", raw))
		return
	}
	booking, err := s.svc.Bookings.ConfirmRequest(r.Context(), userID, bookingID, approved)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	booking, err := s.svc.Bookings.GetByID(r.Context(), userID, bookingID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, s.svc.Bookings.GetAllByUser)
}

func (s *Server) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, s.svc.Bookings.GetAllByOwner)
}

type bookingLister func(ctx context.Context, userID int64, state models.State, page models.Page) ([]*models.Booking, error)

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request, list bookingLister) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	state, err := models.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	page, err := pageFromQuery(r, s.pageSize)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	bookings, err := list(r.Context(), userID, state, page)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(bookings, toBookingResponse))
}

// Requests.

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var body requestRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	view, err := s.svc.Requests.Create(r.Context(), userID, body.Description)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(view))
}

func (s *Server) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	views, err := s.svc.Requests.GetAllByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(views, toRequestResponse))
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	page, err := pageFromQuery(r, s.pageSize)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	views, err := s.svc.Requests.GetAll(r.Context(), userID, page)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(views, toRequestResponse))
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	view, err := s.svc.Requests.GetByID(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(view))
}
