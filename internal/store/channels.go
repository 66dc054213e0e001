package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/nikhil/chapterhub/internal/database"
	"github.com/nikhil/chapterhub/internal/models"
)

// Qualified columns carry aliases so every driver reports the bare name.
var channelColumns = []string{
	"c.id AS id", "c.name AS name", "c.description AS description", "c.chapter_id AS chapter_id",
	"c.is_archived AS is_archived", "c.created_by AS created_by",
	"c.created_at AS created_at", "c.updated_at AS updated_at",
}

var membershipColumns = []string{
	"cm.id AS id", "cm.channel_id AS channel_id", "cm.team_member_id AS team_member_id",
	"cm.role AS role", "cm.joined_at AS joined_at", "cm.last_read_at AS last_read_at",
	"cm.notifications_enabled AS notifications_enabled",
}

// CreateChannelWithAdmin inserts the channel and its creator's admin membership in one transaction
func (s *Store) CreateChannelWithAdmin(ctx context.Context, c *models.Channel) (models.ChannelMember, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	admin := models.ChannelMember{
		ChannelID:            c.ID,
		TeamMemberID:         c.CreatedBy,
		Role:                 models.ChannelRoleAdmin,
		JoinedAt:             c.CreatedAt,
		NotificationsEnabled: true,
	}
	err := s.WithTx(ctx, func(tx *Store) error {
		_, err := tx.exec(ctx, tx.sb.Insert("channels").
			Columns("id", "name", "description", "chapter_id", "is_archived", "created_by", "created_at", "updated_at").
			Values(c.ID, c.Name, c.Description, c.ChapterID, c.IsArchived, c.CreatedBy, c.CreatedAt, c.UpdatedAt))
		if err != nil {
			return fmt.Errorf("create channel: %w", err)
		}
		return tx.AddMembership(ctx, &admin)
	})
	return admin, err
}

// GetChannel fetches one channel
func (s *Store) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	var c models.Channel
	err := s.get(ctx, &c, s.sb.Select(channelColumns...).From("channels c").Where(sq.Eq{"c.id": id}))
	return c, err
}

// ChannelFilter restricts ListChannels to a set of chapters
type ChannelFilter struct {
	AllChapters bool
	ChapterIDs  []string
}

// ListChannels returns non-archived channels of the filtered chapters, annotated for teamMemberID
func (s *Store) ListChannels(ctx context.Context, teamMemberID string, f ChannelFilter) ([]models.ChannelSummary, error) {
	q := s.sb.Select(channelColumns...).
		Column("(SELECT COUNT(*) FROM channel_members cnt WHERE cnt.channel_id = c.id) AS member_count").
		Column("CASE WHEN me.id IS NULL THEN 0 ELSE 1 END AS is_member").
		Column("me.role AS my_role").
		Column("me.last_read_at AS my_last_read_at").
		Column("me.notifications_enabled AS my_notifications_enabled").
		Column(sq.Expr(`CASE WHEN me.id IS NULL THEN 0 ELSE (
			SELECT COUNT(*) FROM messages msg
			WHERE msg.channel_id = c.id AND msg.is_deleted = ?
				AND msg.sender_id <> me.team_member_id
				AND msg.created_at > COALESCE(me.last_read_at, 0)
		) END AS unread_count`, false)).
		From("channels c").
		LeftJoin("channel_members me ON me.channel_id = c.id AND me.team_member_id = ?", teamMemberID).
		Where(sq.Eq{"c.is_archived": false}).
		OrderBy("c.name ASC", "c.id ASC")
	if !f.AllChapters {
		q = q.Where(sq.Eq{"c.chapter_id": f.ChapterIDs})
	}

	channels := []models.ChannelSummary{}
	if err := s.selectAll(ctx, &channels, q); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// ChannelUpdate carries the optional fields of a channel update
type ChannelUpdate struct {
	Name        *string
	Description *string
	IsArchived  *bool
	UpdatedAt   int64
	// Reviver becomes admin when unarchiving leaves the channel without one
	Reviver string
}

// UpdateChannel applies the set fields of u. The caller checks the channel exists;
// MySQL reports unchanged rows as unaffected.
func (s *Store) UpdateChannel(ctx context.Context, id string, u ChannelUpdate) error {
	return s.WithTx(ctx, func(tx *Store) error {
		q := tx.sb.Update("channels").Set("updated_at", u.UpdatedAt).Where(sq.Eq{"id": id})
		if u.Name != nil {
			q = q.Set("name", *u.Name)
		}
		if u.Description != nil {
			q = q.Set("description", *u.Description)
		}
		if u.IsArchived != nil {
			q = q.Set("is_archived", *u.IsArchived)
		}
		if _, err := tx.exec(ctx, q); err != nil {
			return fmt.Errorf("update channel: %w", err)
		}

		if u.IsArchived == nil || *u.IsArchived || u.Reviver == "" {
			return nil
		}
		admins, err := tx.countAdmins(ctx, id)
		if err != nil {
			return fmt.Errorf("count channel admins: %w", err)
		}
		if admins > 0 {
			return nil
		}
		m, err := tx.GetMembership(ctx, id, u.Reviver)
		switch {
		case err == nil:
			_, err = tx.exec(ctx, tx.sb.Update("channel_members").
				Set("role", models.ChannelRoleAdmin).Where(sq.Eq{"id": m.ID}))
			return err
		case errors.Is(err, ErrNotFound):
			return tx.AddMembership(ctx, &models.ChannelMember{
				ChannelID:            id,
				TeamMemberID:         u.Reviver,
				Role:                 models.ChannelRoleAdmin,
				JoinedAt:             u.UpdatedAt,
				NotificationsEnabled: true,
			})
		default:
			return err
		}
	})
}

// CountMembers returns the number of memberships of a channel
func (s *Store) CountMembers(ctx context.Context, channelID string) (int, error) {
	var n int
	err := s.get(ctx, &n, s.sb.Select("COUNT(*)").From("channel_members").Where(sq.Eq{"channel_id": channelID}))
	return n, err
}

// GetMembership fetches the membership of teamMemberID in channelID
func (s *Store) GetMembership(ctx context.Context, channelID, teamMemberID string) (models.ChannelMember, error) {
	var m models.ChannelMember
	err := s.get(ctx, &m, s.sb.Select(membershipColumns...).From("channel_members cm").
		Where(sq.Eq{"cm.channel_id": channelID, "cm.team_member_id": teamMemberID}))
	return m, err
}

// AddMembership inserts a membership, returning ErrAlreadyMember for an existing pair.
// A concurrent insert of the same pair that wins the race also yields ErrAlreadyMember.
func (s *Store) AddMembership(ctx context.Context, m *models.ChannelMember) error {
	_, err := s.GetMembership(ctx, m.ChannelID, m.TeamMemberID)
	if err == nil {
		return ErrAlreadyMember
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err = s.exec(ctx, s.sb.Insert("channel_members").
		Columns("id", "channel_id", "team_member_id", "role", "joined_at", "last_read_at", "notifications_enabled").
		Values(m.ID, m.ChannelID, m.TeamMemberID, m.Role, m.JoinedAt, m.LastReadAt, m.NotificationsEnabled))
	if database.IsUniqueViolation(err) {
		return ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("add channel member: %w", err)
	}
	return nil
}

func (s *Store) countAdmins(ctx context.Context, channelID string) (int, error) {
	var n int
	err := s.get(ctx, &n, s.sb.Select("COUNT(*)").From("channel_members").
		Where(sq.Eq{"channel_id": channelID, "role": models.ChannelRoleAdmin}))
	return n, err
}

// keepsAdmin fails with ErrLastAdmin when m is the only admin of a live channel
func (s *Store) keepsAdmin(ctx context.Context, m models.ChannelMember) error {
	if !m.IsAdmin() {
		return nil
	}
	c, err := s.GetChannel(ctx, m.ChannelID)
	if err != nil {
		return err
	}
	if c.IsArchived {
		return nil
	}
	admins, err := s.countAdmins(ctx, m.ChannelID)
	if err != nil {
		return fmt.Errorf("count channel admins: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// RemoveMembership deletes a membership unless it is the last admin of a non-archived channel
func (s *Store) RemoveMembership(ctx context.Context, channelID, teamMemberID string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		m, err := tx.GetMembership(ctx, channelID, teamMemberID)
		if err != nil {
			return err
		}
		if err := tx.keepsAdmin(ctx, m); err != nil {
			return err
		}
		_, err = tx.exec(ctx, tx.sb.Delete("channel_members").Where(sq.Eq{"id": m.ID}))
		if err != nil {
			return fmt.Errorf("remove channel member: %w", err)
		}
		return nil
	})
}

// SetMemberRole changes a membership role. Demoting the last admin of a
// non-archived channel fails with ErrLastAdmin.
func (s *Store) SetMemberRole(ctx context.Context, channelID, teamMemberID, role string) (models.ChannelMember, error) {
	var out models.ChannelMember
	err := s.WithTx(ctx, func(tx *Store) error {
		m, err := tx.GetMembership(ctx, channelID, teamMemberID)
		if err != nil {
			return err
		}
		if m.Role == role {
			out = m
			return nil
		}
		if role != models.ChannelRoleAdmin {
			if err := tx.keepsAdmin(ctx, m); err != nil {
				return err
			}
		}
		_, err = tx.exec(ctx, tx.sb.Update("channel_members").Set("role", role).Where(sq.Eq{"id": m.ID}))
		if err != nil {
			return fmt.Errorf("set member role: %w", err)
		}
		m.Role = role
		out = m
		return nil
	})
	return out, err
}

// ListMembers returns the memberships of a channel with the member profile names
func (s *Store) ListMembers(ctx context.Context, channelID string) ([]models.ChannelMemberProfile, error) {
	q := s.sb.Select(membershipColumns...).
		Columns("mb.first_name AS first_name", "mb.last_name AS last_name", "mb.email AS email").
		From("channel_members cm").
		Join("team_members tm ON tm.id = cm.team_member_id").
		Join("members mb ON mb.id = tm.member_id").
		Where(sq.Eq{"cm.channel_id": channelID}).
		OrderBy("cm.joined_at ASC", "cm.id ASC")
	members := []models.ChannelMemberProfile{}
	if err := s.selectAll(ctx, &members, q); err != nil {
		return nil, fmt.Errorf("list channel members: %w", err)
	}
	return members, nil
}

// MemberIDs returns the team member ids of everyone in a channel
func (s *Store) MemberIDs(ctx context.Context, channelID string) ([]string, error) {
	ids := []string{}
	err := s.selectAll(ctx, &ids, s.sb.Select("team_member_id").From("channel_members").
		Where(sq.Eq{"channel_id": channelID}))
	if err != nil {
		return nil, fmt.Errorf("list channel member ids: %w", err)
	}
	return ids, nil
}

// MarkRead moves the read cursor of a membership to at
func (s *Store) MarkRead(ctx context.Context, channelID, teamMemberID string, at int64) error {
	_, err := s.exec(ctx, s.sb.Update("channel_members").Set("last_read_at", at).
		Where(sq.Eq{"channel_id": channelID, "team_member_id": teamMemberID}))
	if err != nil {
		return fmt.Errorf("mark channel read: %w", err)
	}
	return nil
}

// SetNotifications toggles push notifications for a membership
func (s *Store) SetNotifications(ctx context.Context, channelID, teamMemberID string, enabled bool) error {
	_, err := s.exec(ctx, s.sb.Update("channel_members").Set("notifications_enabled", enabled).
		Where(sq.Eq{"channel_id": channelID, "team_member_id": teamMemberID}))
	if err != nil {
		return fmt.Errorf("set channel notifications: %w", err)
	}
	return nil
}
