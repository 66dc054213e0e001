package models

// PushSubscription is a browser push endpoint registered by a team member
type PushSubscription struct {
	ID           string `json:"id" db:"id"`
	TeamMemberID string `json:"team_member_id" db:"team_member_id"`
	Endpoint     string `json:"endpoint" db:"endpoint"`
	P256dh       string `json:"p256dh" db:"p256dh"`
	Auth         string `json:"auth" db:"auth"`
	CreatedAt    int64  `json:"created_at" db:"created_at"`
	UpdatedAt    int64  `json:"updated_at" db:"updated_at"`
}
