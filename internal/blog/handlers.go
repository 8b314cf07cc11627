// Package blog serves the public blog surface and its admin counterpart.
// Public reads only ever see published posts and are cached; admin routes see
// every status and invalidate the cache on mutation.
package blog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devfolio/backend/internal/auth"
	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
)

const (
	cachePrefix = "posts:"
	cacheTTL    = 5 * time.Minute
)

// PostStore is the slice of the post repository the handlers need.
type PostStore interface {
	List(ctx context.Context, filter db.PostFilter) ([]*db.Post, int, error)
	GetBySlug(ctx context.Context, slug string) (*db.Post, error)
	GetByID(ctx context.Context, id int64) (*db.Post, error)
	Create(ctx context.Context, post *db.Post) error
	Update(ctx context.Context, id int64, update db.PostUpdate) (*db.Post, error)
	Delete(ctx context.Context, id int64) error
	TogglePublish(ctx context.Context, id int64) (*db.Post, error)
}

// PageCache caches rendered responses for the public read path. A nil-safe
// no-op implementation is acceptable; the database stays authoritative.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// Author is the public author attribution on a post.
type Author struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// PostView is the external post shape.
type PostView struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content,omitempty"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Status        string     `json:"status"`
	Tags          []string   `json:"tags"`
	Author        *Author    `json:"author,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type CreatePostRequest struct {
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Content       string   `json:"content"`
	Excerpt       string   `json:"excerpt"`
	FeaturedImage string   `json:"featuredImage"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags"`
}

type UpdatePostRequest struct {
	Title         *string  `json:"title"`
	Slug          *string  `json:"slug"`
	Content       *string  `json:"content"`
	Excerpt       *string  `json:"excerpt"`
	FeaturedImage *string  `json:"featuredImage"`
	Status        *string  `json:"status"`
	Tags          []string `json:"tags"`
}

type Handlers struct {
	posts PostStore
	cache PageCache
}

func NewHandlers(posts PostStore, cache PageCache) *Handlers {
	return &Handlers{posts: posts, cache: cache}
}

// List serves the public post listing. Only published posts are visible, and
// the rendered page is cached per filter combination.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	filter := db.PostFilter{
		Tag:    r.URL.Query().Get("tag"),
		Status: db.PostStatusPublished,
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}

	cacheKey := fmt.Sprintf("%slist:tag=%s:page=%d:limit=%d", cachePrefix, filter.Tag, filter.Page, filter.Limit)
	if h.cache != nil {
		if cached, ok := h.cache.Get(r.Context(), cacheKey); ok {
			writeCachedJSON(w, requestID, cached)
			return
		}
	}

	posts, total, err := h.posts.List(r.Context(), filter)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to list posts").WithCause(err))
		return
	}

	payload := map[string]any{
		"posts":      postViews(posts, false),
		"pagination": paginate(filter.Page, filter.Limit, total),
	}

	if h.cache != nil {
		if encoded, err := json.Marshal(payload); err == nil {
			h.cache.Set(r.Context(), cacheKey, string(encoded), cacheTTL)
		}
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, payload)
}

// GetBySlug serves a single published post. Drafts and archived posts are
// invisible on this route, indistinguishable from a missing slug.
func (h *Handlers) GetBySlug(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())
	slug := r.PathValue("slug")

	cacheKey := cachePrefix + "slug:" + slug
	if h.cache != nil {
		if cached, ok := h.cache.Get(r.Context(), cacheKey); ok {
			writeCachedJSON(w, requestID, cached)
			return
		}
	}

	post, err := h.posts.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			apperrors.WriteError(w, requestID, apperrors.PostNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to load post").WithCause(err))
		return
	}

	if post.Status != db.PostStatusPublished {
		apperrors.WriteError(w, requestID, apperrors.PostNotFound())
		return
	}

	payload := map[string]any{"post": postView(post, true)}

	if h.cache != nil {
		if encoded, err := json.Marshal(payload); err == nil {
			h.cache.Set(r.Context(), cacheKey, string(encoded), cacheTTL)
		}
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, payload)
}

// ListAll is the admin listing: every status, with an optional status filter.
func (h *Handlers) ListAll(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	filter := db.PostFilter{
		Tag:    r.URL.Query().Get("tag"),
		Status: r.URL.Query().Get("status"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}

	posts, total, err := h.posts.List(r.Context(), filter)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to list posts").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"posts":      postViews(posts, true),
		"pagination": paginate(filter.Page, filter.Limit, total),
	})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	if err := validateCreatePost(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.ValidationError(err.Error()))
		return
	}

	if req.Slug == "" {
		req.Slug = Slugify(req.Title)
	}
	if req.Status == "" {
		req.Status = db.PostStatusDraft
	}

	post := &db.Post{
		Title:   req.Title,
		Slug:    req.Slug,
		Content: req.Content,
		Excerpt: req.Excerpt,
		Status:  req.Status,
		Tags:    req.Tags,
	}
	if req.FeaturedImage != "" {
		post.FeaturedImage = sql.NullString{String: req.FeaturedImage, Valid: true}
	}
	if user := authorID(r); user != 0 {
		post.AuthorID = sql.NullInt64{Int64: user, Valid: true}
	}
	if req.Status == db.PostStatusPublished {
		post.PublishedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	if err := h.posts.Create(r.Context(), post); err != nil {
		if errors.Is(err, db.ErrSlugExists) {
			apperrors.WriteError(w, requestID, apperrors.Conflict("a post with this slug already exists"))
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to create post").WithCause(err))
		return
	}

	h.invalidate(r.Context())

	apperrors.WriteJSON(w, requestID, http.StatusCreated, map[string]any{
		"message": "post created successfully",
		"post":    postView(post, true),
	})
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid post id"))
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	if req.Status != nil && !validPostStatus(*req.Status) {
		apperrors.WriteError(w, requestID, apperrors.ValidationError("invalid post status"))
		return
	}

	post, err := h.posts.Update(r.Context(), id, db.PostUpdate{
		Title:         req.Title,
		Slug:          req.Slug,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		Status:        req.Status,
		Tags:          req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrPostNotFound):
			apperrors.WriteError(w, requestID, apperrors.PostNotFound())
		case errors.Is(err, db.ErrSlugExists):
			apperrors.WriteError(w, requestID, apperrors.Conflict("a post with this slug already exists"))
		case errors.Is(err, db.ErrNoFieldsToUpdate):
			apperrors.WriteError(w, requestID, apperrors.ValidationError("no valid fields to update"))
		default:
			apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to update post").WithCause(err))
		}
		return
	}

	h.invalidate(r.Context())

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"message": "post updated successfully",
		"post":    postView(post, true),
	})
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid post id"))
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			apperrors.WriteError(w, requestID, apperrors.PostNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to delete post").WithCause(err))
		return
	}

	h.invalidate(r.Context())

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]string{
		"message": "post deleted successfully",
	})
}

// TogglePublish flips a post between draft and published.
func (h *Handlers) TogglePublish(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid post id"))
		return
	}

	post, err := h.posts.TogglePublish(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			apperrors.WriteError(w, requestID, apperrors.PostNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to update post").WithCause(err))
		return
	}

	h.invalidate(r.Context())

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"message": "post status updated",
		"post":    postView(post, true),
	})
}

func (h *Handlers) invalidate(ctx context.Context) {
	if h.cache != nil {
		h.cache.InvalidatePrefix(ctx, cachePrefix)
	}
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func validateCreatePost(req *CreatePostRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errors.New("content is required")
	}
	if req.Status != "" && !validPostStatus(req.Status) {
		return errors.New("invalid post status")
	}
	return nil
}

func validPostStatus(status string) bool {
	switch status {
	case db.PostStatusDraft, db.PostStatusPublished, db.PostStatusArchived:
		return true
	}
	return false
}

// postView converts the storage shape to the external one. The listing omits
// full content; detail views include it.
func postView(post *db.Post, includeContent bool) *PostView {
	view := &PostView{
		ID:        post.ID,
		Title:     post.Title,
		Slug:      post.Slug,
		Excerpt:   post.Excerpt,
		Status:    post.Status,
		Tags:      post.Tags,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if includeContent {
		view.Content = post.Content
	}
	if post.FeaturedImage.Valid {
		view.FeaturedImage = post.FeaturedImage.String
	}
	if post.PublishedAt.Valid {
		t := post.PublishedAt.Time
		view.PublishedAt = &t
	}
	if post.AuthorFirstName.Valid || post.AuthorLastName.Valid {
		view.Author = &Author{
			FirstName: post.AuthorFirstName.String,
			LastName:  post.AuthorLastName.String,
			AvatarURL: post.AuthorAvatarURL.String,
		}
	}
	return view
}

func postViews(posts []*db.Post, includeContent bool) []*PostView {
	views := make([]*PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, postView(post, includeContent))
	}
	return views
}

func paginate(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
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

// authorID returns the authenticated user's id, or zero when the request is
// unauthenticated.
func authorID(r *http.Request) int64 {
	if user := auth.GetUserFromContext(r.Context()); user != nil {
		return user.UserID
	}
	return 0
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeCachedJSON(w http.ResponseWriter, requestID string, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "HIT")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
