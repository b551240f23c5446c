package repository

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
)

type commentRepository struct {
	db Querier
}

// NewCommentRepository constructs repository.
func NewCommentRepository(db Querier) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO incident_comments (organization_id, incident_id, author_id, content, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		comment.OrganizationID,
		comment.IncidentID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
		comment.CreatedAt,
	).Scan(&comment.ID)
}
