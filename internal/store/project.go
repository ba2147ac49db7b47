package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/edita-ar/apiserver/types"
)

// ProjectRepository handles persistence for project posts.
type ProjectRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewProjectRepository(db *sql.DB, queryTimeout time.Duration) *ProjectRepository {
	return &ProjectRepository{db: db, timeout: queryTimeout}
}

// Create stores a new project. Likes and comments always start at zero.
func (r *ProjectRepository) Create(ctx context.Context, project types.Project) (types.Project, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	project.Likes = 0
	project.Comments = 0
	project.CreatedAt = time.Now().UTC()

	tagsJSON, err := marshalList(project.Tags)
	if err != nil {
		return types.Project{}, err
	}

	const query = `
		INSERT INTO projects (
			author_name, author_avatar, author_level, author_username,
			title, content, image, project_name, tags, likes, comments, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		project.Author.Name,
		project.Author.Avatar,
		project.Author.Level,
		project.Author.Username,
		project.Title,
		project.Content,
		project.Image,
		project.ProjectName,
		tagsJSON,
		project.Likes,
		project.Comments,
		project.CreatedAt,
	).Scan(&project.ID); err != nil {
		return types.Project{}, classify(ctx, err)
	}

	return project, nil
}

// ListLatest returns up to limit projects, newest first.
func (r *ProjectRepository) ListLatest(ctx context.Context, limit int) ([]types.Project, error) {
	if limit < 1 {
		return []types.Project{}, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, author_name, author_avatar, author_level, author_username,
		       title, content, image, project_name, tags, likes, comments, created_at
		FROM projects
		ORDER BY id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer rows.Close()

	projects := make([]types.Project, 0, limit)
	for rows.Next() {
		var project types.Project
		var tagsJSON []byte
		if err := rows.Scan(
			&project.ID,
			&project.Author.Name,
			&project.Author.Avatar,
			&project.Author.Level,
			&project.Author.Username,
			&project.Title,
			&project.Content,
			&project.Image,
			&project.ProjectName,
			&tagsJSON,
			&project.Likes,
			&project.Comments,
			&project.CreatedAt,
		); err != nil {
			return nil, classify(ctx, err)
		}

		_ = json.Unmarshal(tagsJSON, &project.Tags)
		if project.Tags == nil {
			project.Tags = []string{}
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	return projects, nil
}
