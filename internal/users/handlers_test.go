package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devfolio/backend/internal/auth"
	"github.com/devfolio/backend/internal/db"
)

type fakeUserStore struct {
	users map[int64]*db.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*db.User)}
}

func (s *fakeUserStore) List(ctx context.Context, filter db.UserFilter) ([]*db.User, int, error) {
	var out []*db.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*db.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) Update(ctx context.Context, id int64, update db.UserUpdate) (*db.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	if update.FirstName == nil && update.LastName == nil && update.Bio == nil &&
		update.AvatarURL == nil && update.Role == nil {
		return nil, db.ErrNoFieldsToUpdate
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	return u, nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return db.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func seedUser(store *fakeUserStore, id int64, email, role string) *db.User {
	u := &db.User{
		ID:        id,
		Email:     email,
		FirstName: "First",
		LastName:  "Last",
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	store.users[id] = u
	return u
}

func asUser(req *http.Request, id int64, role string) *http.Request {
	ctx := auth.WithUser(req.Context(), &auth.UserContext{
		UserID: id,
		Email:  "caller@example.com",
		Role:   role,
	})
	return req.WithContext(ctx)
}

func TestList(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 1, "admin@example.com", db.RoleAdmin)
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/users?role=user", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Users      []*UserView `json:"users"`
		Pagination Pagination  `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Email != "member@example.com" {
		t.Errorf("unexpected users: %+v", resp.Users)
	}
}

func TestGet_SelfAccessAllowed(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/users/2", nil)
	req.SetPathValue("id", "2")
	req = asUser(req, 2, db.RoleUser)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for self access, got %d", w.Code)
	}
}

func TestGet_OtherUserForbidden(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 1, "other@example.com", db.RoleUser)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.SetPathValue("id", "1")
	req = asUser(req, 2, db.RoleUser)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestGet_AdminReadsAnyone(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/users/2", nil)
	req.SetPathValue("id", "2")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for admin, got %d", w.Code)
	}
}

func TestUpdate_RoleChange(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	role := db.RoleAdmin
	body, _ := json.Marshal(UpdateUserRequest{Role: &role})
	req := httptest.NewRequest(http.MethodPut, "/api/users/2", bytes.NewReader(body))
	req.SetPathValue("id", "2")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.users[2].Role != db.RoleAdmin {
		t.Errorf("role not updated: %s", store.users[2].Role)
	}
}

func TestUpdate_OwnDemotionRejected(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 1, "admin@example.com", db.RoleAdmin)

	h := NewHandlers(store)

	role := db.RoleUser
	body, _ := json.Marshal(UpdateUserRequest{Role: &role})
	req := httptest.NewRequest(http.MethodPut, "/api/users/1", bytes.NewReader(body))
	req.SetPathValue("id", "1")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for self-demotion, got %d", w.Code)
	}
	if store.users[1].Role != db.RoleAdmin {
		t.Error("role changed despite rejection")
	}
}

func TestUpdate_InvalidRole(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	role := "superuser"
	body, _ := json.Marshal(UpdateUserRequest{Role: &role})
	req := httptest.NewRequest(http.MethodPut, "/api/users/2", bytes.NewReader(body))
	req.SetPathValue("id", "2")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid role, got %d", w.Code)
	}
}

func TestDelete_SelfRejected(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 1, "admin@example.com", db.RoleAdmin)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/1", nil)
	req.SetPathValue("id", "1")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for self-delete, got %d", w.Code)
	}
	if _, ok := store.users[1]; !ok {
		t.Error("user deleted despite rejection")
	}
}

func TestDelete(t *testing.T) {
	store := newFakeUserStore()
	seedUser(store, 2, "member@example.com", db.RoleUser)

	h := NewHandlers(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/2", nil)
	req.SetPathValue("id", "2")
	req = asUser(req, 1, db.RoleAdmin)
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if len(store.users) != 0 {
		t.Error("user not deleted")
	}
}
