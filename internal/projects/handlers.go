// Package projects serves the portfolio project listing. Reads are public;
// mutations are admin-only and wired up behind the admin gate by the router.
package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
)

// ProjectStore is the slice of the project repository the handlers need.
type ProjectStore interface {
	List(ctx context.Context, filter db.ProjectFilter) ([]*db.Project, int, error)
	GetBySlug(ctx context.Context, slug string) (*db.Project, error)
	Create(ctx context.Context, project *db.Project) error
	Update(ctx context.Context, id int64, update db.ProjectUpdate) (*db.Project, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectView is the external project shape.
type ProjectView struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Content       string    `json:"content,omitempty"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	ProjectURL    string    `json:"projectUrl,omitempty"`
	GithubURL     string    `json:"githubUrl,omitempty"`
	Technologies  []string  `json:"technologies"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	OrderIndex    int       `json:"orderIndex"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type CreateProjectRequest struct {
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description"`
	Content       string   `json:"content"`
	FeaturedImage string   `json:"featuredImage"`
	ProjectURL    string   `json:"projectUrl"`
	GithubURL     string   `json:"githubUrl"`
	Technologies  []string `json:"technologies"`
	Category      string   `json:"category"`
	Status        string   `json:"status"`
	OrderIndex    int      `json:"orderIndex"`
}

type UpdateProjectRequest struct {
	Title         *string  `json:"title"`
	Slug          *string  `json:"slug"`
	Description   *string  `json:"description"`
	Content       *string  `json:"content"`
	FeaturedImage *string  `json:"featuredImage"`
	ProjectURL    *string  `json:"projectUrl"`
	GithubURL     *string  `json:"githubUrl"`
	Technologies  []string `json:"technologies"`
	Category      *string  `json:"category"`
	Status        *string  `json:"status"`
	OrderIndex    *int     `json:"orderIndex"`
}

type Handlers struct {
	projects ProjectStore
}

func NewHandlers(projects ProjectStore) *Handlers {
	return &Handlers{projects: projects}
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	filter := db.ProjectFilter{
		Category: r.URL.Query().Get("category"),
		Status:   r.URL.Query().Get("status"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 10),
	}

	projects, total, err := h.projects.List(r.Context(), filter)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to list projects").WithCause(err))
		return
	}

	views := make([]*ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, projectView(p, false))
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"projects": views,
		"pagination": Pagination{
			Page: filter.Page, Limit: filter.Limit, Total: total, TotalPages: totalPages,
		},
	})
}

func (h *Handlers) GetBySlug(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	project, err := h.projects.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			apperrors.WriteError(w, requestID, apperrors.ProjectNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to load project").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"project": projectView(project, true),
	})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	if err := validateCreateProject(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.ValidationError(err.Error()))
		return
	}

	if req.Status == "" {
		req.Status = db.ProjectStatusActive
	}

	project := &db.Project{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		Content:      req.Content,
		Technologies: req.Technologies,
		Category:     req.Category,
		Status:       req.Status,
		OrderIndex:   req.OrderIndex,
	}
	setNullString(&project.FeaturedImage, req.FeaturedImage)
	setNullString(&project.ProjectURL, req.ProjectURL)
	setNullString(&project.GithubURL, req.GithubURL)

	if err := h.projects.Create(r.Context(), project); err != nil {
		if errors.Is(err, db.ErrSlugExists) {
			apperrors.WriteError(w, requestID, apperrors.Conflict("a project with this slug already exists"))
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to create project").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusCreated, map[string]any{
		"message": "project created successfully",
		"project": projectView(project, true),
	})
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid project id"))
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid request body"))
		return
	}

	if req.Status != nil && !validProjectStatus(*req.Status) {
		apperrors.WriteError(w, requestID, apperrors.ValidationError("invalid project status"))
		return
	}

	project, err := h.projects.Update(r.Context(), id, db.ProjectUpdate{
		Title:         req.Title,
		Slug:          req.Slug,
		Description:   req.Description,
		Content:       req.Content,
		FeaturedImage: req.FeaturedImage,
		ProjectURL:    req.ProjectURL,
		GithubURL:     req.GithubURL,
		Technologies:  req.Technologies,
		Category:      req.Category,
		Status:        req.Status,
		OrderIndex:    req.OrderIndex,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrProjectNotFound):
			apperrors.WriteError(w, requestID, apperrors.ProjectNotFound())
		case errors.Is(err, db.ErrSlugExists):
			apperrors.WriteError(w, requestID, apperrors.Conflict("a project with this slug already exists"))
		case errors.Is(err, db.ErrNoFieldsToUpdate):
			apperrors.WriteError(w, requestID, apperrors.ValidationError("no valid fields to update"))
		default:
			apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to update project").WithCause(err))
		}
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{
		"message": "project updated successfully",
		"project": projectView(project, true),
	})
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := apperrors.GetRequestID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteError(w, requestID, apperrors.BadRequest("invalid project id"))
		return
	}

	if err := h.projects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			apperrors.WriteError(w, requestID, apperrors.ProjectNotFound())
			return
		}
		apperrors.WriteError(w, requestID, apperrors.DatabaseError("failed to delete project").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]string{
		"message": "project deleted successfully",
	})
}

func validateCreateProject(req *CreateProjectRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(req.Slug) == "" {
		return errors.New("slug is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return errors.New("description is required")
	}
	if req.Status != "" && !validProjectStatus(req.Status) {
		return errors.New("invalid project status")
	}
	return nil
}

func validProjectStatus(status string) bool {
	switch status {
	case db.ProjectStatusActive, db.ProjectStatusInactive, db.ProjectStatusFeatured:
		return true
	}
	return false
}

func projectView(p *db.Project, includeContent bool) *ProjectView {
	view := &ProjectView{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		Technologies: p.Technologies,
		Category:     p.Category,
		Status:       p.Status,
		OrderIndex:   p.OrderIndex,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if view.Technologies == nil {
		view.Technologies = []string{}
	}
	if includeContent {
		view.Content = p.Content
	}
	if p.FeaturedImage.Valid {
		view.FeaturedImage = p.FeaturedImage.String
	}
	if p.ProjectURL.Valid {
		view.ProjectURL = p.ProjectURL.String
	}
	if p.GithubURL.Valid {
		view.GithubURL = p.GithubURL.String
	}
	return view
}

func setNullString(dst *sql.NullString, value string) {
	if value != "" {
		dst.String, dst.Valid = value, true
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
