package models

// Message is a single channel message. Deleted messages keep their row.
type Message struct {
	ID        string  `json:"id" db:"id"`
	ChannelID string  `json:"channel_id" db:"channel_id"`
	SenderID  string  `json:"sender_id" db:"sender_id"`
	Content   *string `json:"content" db:"content"`
	IsEdited  bool    `json:"is_edited" db:"is_edited"`
	IsDeleted bool    `json:"is_deleted" db:"is_deleted"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

// MessageBody is a message as returned to callers, with sender names attached
type MessageBody struct {
	Message
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}

// Redact nulls the content of deleted messages, keeping the metadata.
func (m *Message) Redact() {
	if m.IsDeleted {
		m.Content = nil
	}
}
