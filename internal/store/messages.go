package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/nikhil/chapterhub/internal/models"
)

var messageColumns = []string{
	"m.id AS id", "m.channel_id AS channel_id", "m.sender_id AS sender_id", "m.content AS content",
	"m.is_edited AS is_edited", "m.is_deleted AS is_deleted",
	"m.created_at AS created_at", "m.updated_at AS updated_at",
}

// CreateMessage inserts a message, generating its id when empty
func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, s.sb.Insert("messages").
		Columns("id", "channel_id", "sender_id", "content", "is_edited", "is_deleted", "created_at", "updated_at").
		Values(m.ID, m.ChannelID, m.SenderID, m.Content, m.IsEdited, m.IsDeleted, m.CreatedAt, m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessage fetches one message with its stored content
func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var m models.Message
	err := s.get(ctx, &m, s.sb.Select(messageColumns...).From("messages m").Where(sq.Eq{"m.id": id}))
	return m, err
}

// ListMessages returns up to limit messages of a channel newest first.
// A non-nil before keeps only messages created strictly earlier than it.
// Deleted messages come back with their content nulled.
func (s *Store) ListMessages(ctx context.Context, channelID string, before *int64, limit int) ([]models.MessageBody, error) {
	q := s.sb.Select(messageColumns...).
		Column("COALESCE(mb.first_name, '') AS first_name").
		Column("COALESCE(mb.last_name, '') AS last_name").
		From("messages m").
		LeftJoin("team_members tm ON tm.id = m.sender_id").
		LeftJoin("members mb ON mb.id = tm.member_id").
		Where(sq.Eq{"m.channel_id": channelID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit))
	if before != nil {
		q = q.Where(sq.Lt{"m.created_at": *before})
	}

	messages := []models.MessageBody{}
	if err := s.selectAll(ctx, &messages, q); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range messages {
		messages[i].Redact()
	}
	return messages, nil
}

// EditMessage replaces the content of a message and flags it edited
func (s *Store) EditMessage(ctx context.Context, id, content string, at int64) error {
	_, err := s.exec(ctx, s.sb.Update("messages").
		Set("content", content).
		Set("is_edited", true).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// SoftDeleteMessage flags a message deleted; the row and content stay in place
func (s *Store) SoftDeleteMessage(ctx context.Context, id string, at int64) error {
	_, err := s.exec(ctx, s.sb.Update("messages").
		Set("is_deleted", true).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
