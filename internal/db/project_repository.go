package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

var ErrProjectNotFound = errors.New("project not found")

const (
	ProjectStatusActive   = "active"
	ProjectStatusInactive = "inactive"
	ProjectStatusFeatured = "featured"
)

type Project struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Content       string         `json:"content"`
	FeaturedImage sql.NullString `json:"-"`
	ProjectURL    sql.NullString `json:"-"`
	GithubURL     sql.NullString `json:"-"`
	Technologies  []string       `json:"technologies"`
	Category      string         `json:"category"`
	Status        string         `json:"status"`
	OrderIndex    int            `json:"orderIndex"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type ProjectUpdate struct {
	Title         *string
	Slug          *string
	Description   *string
	Content       *string
	FeaturedImage *string
	ProjectURL    *string
	GithubURL     *string
	Technologies  []string
	Category      *string
	Status        *string
	OrderIndex    *int
}

type ProjectFilter struct {
	Category string
	Status   string
	Page     int
	Limit    int
}

type ProjectRepository struct {
	db *DB
}

func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, title, slug, description, content, featured_image, project_url,
	github_url, technologies, category, status, order_index, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	p := &Project{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Content, &p.FeaturedImage,
		&p.ProjectURL, &p.GithubURL, pq.Array(&p.Technologies), &p.Category,
		&p.Status, &p.OrderIndex, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, int, error) {
	where := "WHERE 1=1"
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT %s FROM projects %s
		ORDER BY order_index ASC, created_at DESC
		LIMIT $%d OFFSET $%d`,
		projectColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}

	return projects, total, rows.Err()
}

func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE slug = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	return p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	return p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (title, slug, description, content, featured_image, project_url,
			github_url, technologies, category, status, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Content, p.FeaturedImage, p.ProjectURL,
		p.GithubURL, pq.Array(p.Technologies), p.Category, p.Status, p.OrderIndex,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return err
	}

	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, update ProjectUpdate) (*Project, error) {
	set := []string{}
	args := []any{}

	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("title", update.Title)
	add("slug", update.Slug)
	add("description", update.Description)
	add("content", update.Content)
	add("featured_image", update.FeaturedImage)
	add("project_url", update.ProjectURL)
	add("github_url", update.GithubURL)
	add("category", update.Category)
	add("status", update.Status)
	if update.Technologies != nil {
		args = append(args, pq.Array(update.Technologies))
		set = append(set, fmt.Sprintf("technologies = $%d", len(args)))
	}
	if update.OrderIndex != nil {
		args = append(args, *update.OrderIndex)
		set = append(set, fmt.Sprintf("order_index = $%d", len(args)))
	}

	if len(set) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE projects SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), projectColumns,
	)

	p, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}

	return p, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}
