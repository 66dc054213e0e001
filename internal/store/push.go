package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/nikhil/chapterhub/internal/models"
)

var pushColumns = []string{"id", "team_member_id", "endpoint", "p256dh", "auth", "created_at", "updated_at"}

// UpsertPushSubscription registers an endpoint for a team member, refreshing the keys of a known one
func (s *Store) UpsertPushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	return s.WithTx(ctx, func(tx *Store) error {
		var existing models.PushSubscription
		err := tx.get(ctx, &existing, tx.sb.Select(pushColumns...).From("push_subscriptions").
			Where(sq.Eq{"team_member_id": sub.TeamMemberID, "endpoint": sub.Endpoint}))
		switch {
		case err == nil:
			sub.ID = existing.ID
			sub.CreatedAt = existing.CreatedAt
			_, err = tx.exec(ctx, tx.sb.Update("push_subscriptions").
				Set("p256dh", sub.P256dh).
				Set("auth", sub.Auth).
				Set("updated_at", sub.UpdatedAt).
				Where(sq.Eq{"id": existing.ID}))
			if err != nil {
				return fmt.Errorf("refresh push subscription: %w", err)
			}
			return nil
		case errors.Is(err, ErrNotFound):
			if sub.ID == "" {
				sub.ID = uuid.NewString()
			}
			_, err = tx.exec(ctx, tx.sb.Insert("push_subscriptions").
				Columns(pushColumns...).
				Values(sub.ID, sub.TeamMemberID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt, sub.UpdatedAt))
			if err != nil {
				return fmt.Errorf("create push subscription: %w", err)
			}
			return nil
		default:
			return err
		}
	})
}

// DeletePushSubscription removes a team member's endpoint. Returns ErrNotFound when absent.
func (s *Store) DeletePushSubscription(ctx context.Context, teamMemberID, endpoint string) error {
	n, err := s.exec(ctx, s.sb.Delete("push_subscriptions").
		Where(sq.Eq{"team_member_id": teamMemberID, "endpoint": endpoint}))
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePushSubscriptionByID removes a subscription the push service reported gone
func (s *Store) DeletePushSubscriptionByID(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, s.sb.Delete("push_subscriptions").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete push subscription %s: %w", id, err)
	}
	return nil
}

// PushTargets returns the subscriptions of every channel member who has
// notifications enabled, excluding senderID
func (s *Store) PushTargets(ctx context.Context, channelID, senderID string) ([]models.PushSubscription, error) {
	q := s.sb.Select(
		"ps.id AS id", "ps.team_member_id AS team_member_id", "ps.endpoint AS endpoint",
		"ps.p256dh AS p256dh", "ps.auth AS auth", "ps.created_at AS created_at", "ps.updated_at AS updated_at",
	).
		From("push_subscriptions ps").
		Join("channel_members cm ON cm.team_member_id = ps.team_member_id").
		Where(sq.Eq{"cm.channel_id": channelID, "cm.notifications_enabled": true}).
		Where(sq.NotEq{"ps.team_member_id": senderID}).
		OrderBy("ps.team_member_id ASC", "ps.created_at ASC")
	subs := []models.PushSubscription{}
	if err := s.selectAll(ctx, &subs, q); err != nil {
		return nil, fmt.Errorf("list push targets: %w", err)
	}
	return subs, nil
}
