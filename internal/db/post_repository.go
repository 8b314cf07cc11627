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

var ErrPostNotFound = errors.New("post not found")
var ErrSlugExists = errors.New("slug already exists")

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

type Post struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Content       string         `json:"content"`
	Excerpt       string         `json:"excerpt"`
	FeaturedImage sql.NullString `json:"-"`
	AuthorID      sql.NullInt64  `json:"-"`
	Status        string         `json:"status"`
	Tags          []string       `json:"tags"`
	PublishedAt   sql.NullTime   `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// Author display fields joined from users
	AuthorFirstName sql.NullString `json:"-"`
	AuthorLastName  sql.NullString `json:"-"`
	AuthorAvatarURL sql.NullString `json:"-"`
}

type PostUpdate struct {
	Title         *string
	Slug          *string
	Content       *string
	Excerpt       *string
	FeaturedImage *string
	Status        *string
	Tags          []string
}

type PostFilter struct {
	Tag    string
	Status string
	Page   int
	Limit  int
}

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `p.id, p.title, p.slug, p.content, p.excerpt, p.featured_image, p.author_id,
	p.status, p.tags, p.published_at, p.created_at, p.updated_at,
	u.first_name, u.last_name, u.avatar_url`

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	post := &Post{}
	err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Content, &post.Excerpt,
		&post.FeaturedImage, &post.AuthorID, &post.Status, pq.Array(&post.Tags),
		&post.PublishedAt, &post.CreatedAt, &post.UpdatedAt,
		&post.AuthorFirstName, &post.AuthorLastName, &post.AuthorAvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context, filter PostFilter) ([]*Post, int, error) {
	where := "WHERE 1=1"
	args := []any{}

	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where += fmt.Sprintf(" AND $%d = ANY(p.tags)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND p.status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p "+where, args...).Scan(&total); err != nil {
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
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.author_id = u.id
		%s
		ORDER BY p.published_at DESC NULLS LAST, p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		postColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}

	return posts, total, rows.Err()
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.author_id = u.id
		WHERE p.slug = $1`, postColumns)

	post, err := scanPost(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post *Post) error {
	query := `
		INSERT INTO posts (title, slug, content, excerpt, featured_image, author_id, status, tags, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		post.Title, post.Slug, post.Content, post.Excerpt, post.FeaturedImage,
		post.AuthorID, post.Status, pq.Array(post.Tags), post.PublishedAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return err
	}

	return nil
}

func (r *PostRepository) Update(ctx context.Context, id int64, update PostUpdate) (*Post, error) {
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
	add("content", update.Content)
	add("excerpt", update.Excerpt)
	add("featured_image", update.FeaturedImage)
	add("status", update.Status)
	if update.Tags != nil {
		args = append(args, pq.Array(update.Tags))
		set = append(set, fmt.Sprintf("tags = $%d", len(args)))
	}

	if len(set) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE posts SET %s, updated_at = NOW() WHERE id = $%d RETURNING id",
		strings.Join(set, ", "), len(args),
	)

	var updatedID int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}

	return r.GetByID(ctx, updatedID)
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.author_id = u.id
		WHERE p.id = $1`, postColumns)

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPostNotFound
	}

	return nil
}

// TogglePublish flips a post between draft and published, stamping
// published_at on publish and clearing it on unpublish.
func (r *PostRepository) TogglePublish(ctx context.Context, id int64) (*Post, error) {
	query := `
		UPDATE posts
		SET
			status = CASE WHEN status = 'published' THEN 'draft' ELSE 'published' END,
			published_at = CASE WHEN status = 'published' THEN NULL ELSE NOW() END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var updatedID int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return r.GetByID(ctx, updatedID)
}
