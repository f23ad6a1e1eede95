package models

import "time"

type Message struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Content    string      `json:"content"`
	Edited     bool        `json:"edited"`
	Deleted    bool        `json:"deleted"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  *time.Time  `json:"updated_at"`
	ParentID   *string     `json:"parent_id"`
	Attachment *Attachment `json:"attachment"`
}

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type PostMessageRequest struct {
	RoomID   string   `json:"room_id"`
	Content  string   `json:"content"`
	ParentID *string  `json:"parent_id"`
	Mentions []string `json:"mentions"`
}

type ReactionRequest struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type ReceiptRequest struct {
	MessageIDs []string `json:"message_ids"`
}
