// Package users is the admin user-management surface. Every route here sits
// behind the admin gate except the single-user read, which a user may also
// perform on their own record.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/devfolio/backend/internal/auth"
	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
)

// UserStore is the slice of the user repository the handlers need.
type UserStore interface {
	List(ctx context.Context, filter db.UserFilter) ([]*db.User, int, error)
	GetByID(ctx context.Context, id int64) (*db.User, error)
	Update(ctx context.Context, id int64, update db.UserUpdate) (*db.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserView is the external user shape on the admin surface.
type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
	Role      *string `json:"role"`
}

type Handlers struct {
	users UserStore
}

func NewHandlers(users UserStore) *Handlers {
	return &Handlers{users: users}
}

// List returns users matching the search and role filters.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	filter := db.UserFilter{
		Search: r.URL.Query().Get("search"),
		Role:   r.URL.Query().Get("role"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}

	users, total, err := h.users.List(r.Context(), filter)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to list users").WithCause(err))
		return
	}

	views := make([]*UserView, 0, len(users))
	for _, user := range users {
		views = append(views, userView(user))
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"users": views,
		"pagination": Pagination{
			Page: filter.Page, Limit: filter.Limit, Total: total, TotalPages: totalPages,
		},
	})
}

// Get returns a single user. Admins may read anyone; a regular user may only
// read their own record.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid user id"))
		return
	}

	caller := auth.GetUserFromContext(r.Context())
	if caller == nil {
		apperrors.WriteError(w, requestID, apperrors.Unauthorized("not authenticated"))
		return
	}
	if caller.Role != db.RoleAdmin && caller.UserID != id {
		apperrors.WriteError(w, requestID, apperrors.Forbidden("cannot access another user's record"))
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			apperrors.WriteError(w, requestID, apperrors.UserNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to load user").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{"user": userView(user)})
}

// Update applies profile fields and, optionally, a role change.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid user id"))
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	if req.Role != nil && *req.Role != db.RoleUser && *req.Role != db.RoleAdmin {
		apperrors.WriteError(w, requestID, apperrors.ValidationError("invalid role"))
		return
	}

	// An admin demoting themselves would lock the last key in the door.
	caller := auth.GetUserFromContext(r.Context())
	if req.Role != nil && caller != nil && caller.UserID == id && *req.Role != db.RoleAdmin {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("cannot change your own role"))
		return
	}

	user, err := h.users.Update(r.Context(), id, db.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUserNotFound):
			apperrors.WriteError(w, requestID, apperrors.UserNotFound())
		case errors.Is(err, db.ErrNoFieldsToUpdate):
			apperrors.WriteError(w, requestID, apperrors.ValidationError("no valid fields to update"))
		default:
			apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to update user").WithCause(err))
		}
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"message": "user updated successfully",
		"user":    userView(user),
	})
}

// Delete removes a user. Deleting your own account through the admin surface
// is rejected.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid user id"))
		return
	}

	if caller := auth.GetUserFromContext(r.Context()); caller != nil && caller.UserID == id {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("cannot delete your own account"))
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			apperrors.WriteError(w, requestID, apperrors.UserNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to delete user").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]string{
		"message": "user deleted successfully",
	})
}

func userView(user *db.User) *UserView {
	return &UserView{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio.String,
		AvatarURL: user.AvatarURL.String,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
