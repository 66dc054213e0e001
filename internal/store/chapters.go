package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nikhil/chapterhub/internal/models"
)

const descendantsQuery = `
	WITH RECURSIVE tree AS (
		SELECT id FROM chapters WHERE id = ?
		UNION ALL
		SELECT c.id FROM chapters c INNER JOIN tree t ON c.parent_id = t.id
	)
	SELECT id FROM tree`

// Descendants returns chapterID followed by every chapter below it.
// An unknown id yields an empty slice.
func (s *Store) Descendants(ctx context.Context, chapterID string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, s.q, &ids, s.q.Rebind(descendantsQuery), chapterID); err != nil {
		return nil, fmt.Errorf("descendants of %s: %w", chapterID, err)
	}
	return ids, nil
}

// CreateChapter inserts a chapter, generating its id when empty
func (s *Store) CreateChapter(ctx context.Context, c *models.Chapter) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, s.sb.Insert("chapters").
		Columns("id", "name", "parent_id", "level", "created_at").
		Values(c.ID, c.Name, c.ParentID, c.Level, c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}
	return nil
}

// GetChapter fetches one chapter
func (s *Store) GetChapter(ctx context.Context, id string) (models.Chapter, error) {
	var c models.Chapter
	err := s.get(ctx, &c, s.sb.Select("id", "name", "parent_id", "level", "created_at").
		From("chapters").Where(sq.Eq{"id": id}))
	return c, err
}

// ListChapters returns the given chapters, or every chapter when all is set
func (s *Store) ListChapters(ctx context.Context, ids []string, all bool) ([]models.Chapter, error) {
	q := s.sb.Select("id", "name", "parent_id", "level", "created_at").
		From("chapters").OrderBy("name ASC")
	if !all {
		q = q.Where(sq.Eq{"id": ids})
	}
	chapters := []models.Chapter{}
	if err := s.selectAll(ctx, &chapters, q); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}
