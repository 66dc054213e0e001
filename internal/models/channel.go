package models

// Channel member roles
const (
	ChannelRoleAdmin  = "admin"
	ChannelRoleMember = "member"
)

// Channel represents a group-messaging space owned by one chapter
type Channel struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description" db:"description"`
	ChapterID   string  `json:"chapter_id" db:"chapter_id"`
	IsArchived  bool    `json:"is_archived" db:"is_archived"`
	CreatedBy   string  `json:"created_by" db:"created_by"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}

// ChannelMember represents a channel membership with role and read cursor
type ChannelMember struct {
	ID                   string `json:"id" db:"id"`
	ChannelID            string `json:"channel_id" db:"channel_id"`
	TeamMemberID         string `json:"team_member_id" db:"team_member_id"`
	Role                 string `json:"role" db:"role"` // admin, member
	JoinedAt             int64  `json:"joined_at" db:"joined_at"`
	LastReadAt           *int64 `json:"last_read_at" db:"last_read_at"`
	NotificationsEnabled bool   `json:"notifications_enabled" db:"notifications_enabled"`
}

// IsAdmin reports whether the membership carries the channel admin role
func (m ChannelMember) IsAdmin() bool {
	return m.Role == ChannelRoleAdmin
}

// ChannelSummary is a channel annotated for the calling team member
type ChannelSummary struct {
	Channel
	MemberCount          int     `json:"member_count" db:"member_count"`
	IsMember             bool    `json:"is_member" db:"is_member"`
	Role                 *string `json:"role" db:"my_role"`
	LastReadAt           *int64  `json:"last_read_at" db:"my_last_read_at"`
	NotificationsEnabled *bool   `json:"notifications_enabled" db:"my_notifications_enabled"`
	UnreadCount          int     `json:"unread_count" db:"unread_count"`
}

// ChannelMemberProfile is a membership joined with the member profile behind the team member
type ChannelMemberProfile struct {
	ChannelMember
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
}
