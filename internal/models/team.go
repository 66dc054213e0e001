package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Chapter levels
const (
	LevelNational = "national"
	LevelState    = "state"
	LevelCounty   = "county"
	LevelCity     = "city"
)

// Chapter is a node in the chapter tree
type Chapter struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	ParentID  *string `json:"parent_id" db:"parent_id"`
	Level     string  `json:"level" db:"level"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// Member is a constituent profile
type Member struct {
	ID         string  `json:"id" db:"id"`
	ChapterID  *string `json:"chapter_id" db:"chapter_id"`
	FirstName  string  `json:"first_name" db:"first_name"`
	LastName   string  `json:"last_name" db:"last_name"`
	Email      string  `json:"email" db:"email"`
	EmailOptIn bool    `json:"email_opt_in" db:"email_opt_in"`
	CreatedAt  int64   `json:"created_at" db:"created_at"`
}

// TeamMember is an authenticated user holding organizational roles
type TeamMember struct {
	ID        string  `json:"id" db:"id"`
	UserID    string  `json:"user_id" db:"user_id"`
	MemberID  string  `json:"member_id" db:"member_id"`
	ChapterID *string `json:"chapter_id" db:"chapter_id"`
	Roles     Roles   `json:"roles" db:"roles"`
	IsActive  bool    `json:"is_active" db:"is_active"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// Chapter returns the assigned chapter id, or "" when unassigned
func (t TeamMember) Chapter() string {
	if t.ChapterID == nil {
		return ""
	}
	return *t.ChapterID
}

// Roles is a role-string array stored as a JSON text column
type Roles []string

// Value implements driver.Valuer
func (r Roles) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *Roles) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = Roles{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("roles: unsupported column type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	*r = out
	return nil
}
