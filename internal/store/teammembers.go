package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/nikhil/chapterhub/internal/models"
)

var teamMemberColumns = []string{"id", "user_id", "member_id", "chapter_id", "roles", "is_active", "created_at"}

var memberColumns = []string{"id", "chapter_id", "first_name", "last_name", "email", "email_opt_in", "created_at"}

// CreateMember inserts a member profile, generating its id when empty
func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, s.sb.Insert("members").
		Columns(memberColumns...).
		Values(m.ID, m.ChapterID, m.FirstName, m.LastName, m.Email, m.EmailOptIn, m.CreatedAt))
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// GetMember fetches one member profile
func (s *Store) GetMember(ctx context.Context, id string) (models.Member, error) {
	var m models.Member
	err := s.get(ctx, &m, s.sb.Select(memberColumns...).From("members").Where(sq.Eq{"id": id}))
	return m, err
}

// UpdateMemberName changes the names on a member profile
func (s *Store) UpdateMemberName(ctx context.Context, id, firstName, lastName string) error {
	_, err := s.exec(ctx, s.sb.Update("members").
		Set("first_name", firstName).
		Set("last_name", lastName).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

// ListEmailRecipients returns opted-in members of the given chapters, or of
// every chapter when all is set
func (s *Store) ListEmailRecipients(ctx context.Context, chapterIDs []string, all bool) ([]models.Member, error) {
	q := s.sb.Select(memberColumns...).From("members").
		Where(sq.Eq{"email_opt_in": true}).
		Where(sq.NotEq{"email": ""}).
		OrderBy("last_name ASC", "first_name ASC")
	if !all {
		q = q.Where(sq.Eq{"chapter_id": chapterIDs})
	}
	members := []models.Member{}
	if err := s.selectAll(ctx, &members, q); err != nil {
		return nil, fmt.Errorf("list email recipients: %w", err)
	}
	return members, nil
}

// CreateTeamMember inserts a team member, generating its id when empty
func (s *Store) CreateTeamMember(ctx context.Context, tm *models.TeamMember) error {
	if tm.ID == "" {
		tm.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, s.sb.Insert("team_members").
		Columns(teamMemberColumns...).
		Values(tm.ID, tm.UserID, tm.MemberID, tm.ChapterID, tm.Roles, tm.IsActive, tm.CreatedAt))
	if err != nil {
		return fmt.Errorf("create team member: %w", err)
	}
	return nil
}

// GetActiveTeamMemberByUserID resolves an identity-provider subject to its team member
func (s *Store) GetActiveTeamMemberByUserID(ctx context.Context, userID string) (models.TeamMember, error) {
	var tm models.TeamMember
	err := s.get(ctx, &tm, s.sb.Select(teamMemberColumns...).From("team_members").
		Where(sq.Eq{"user_id": userID, "is_active": true}))
	return tm, err
}
