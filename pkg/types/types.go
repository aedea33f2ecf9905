package types

import (
	"time"
)

// Server-to-client event names carried over the real-time channel.
// The wire format is an envelope of {type, payload} with
// underscore-separated event names.
const (
	EventConnected        = "connected"
	EventMaintenance      = "maintenance"
	EventQuestionCreated  = "question_created"
	EventReplyAdded       = "reply_added"
	EventQuestionDeleted  = "question_deleted"
	EventReplyDeleted     = "reply_deleted"
	EventQuestionsCleared = "questions_cleared"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventTyping           = "typing"
)

// Client-to-server message types.
const (
	MessageSetUsername = "set-username"
	MessageTyping      = "typing"
)

// Reserved author labels and length bounds applied on write.
const (
	AnonymousAuthor = "Anonymous"
	GuestName       = "Guest"
	AIAuthor        = "AI Assistant"

	MaxTextLen     = 2000
	MaxAuthorLen   = 50
	MaxUsernameLen = 50
)

// Question is a posted question with its ordered replies. Owned by the
// content store; replies cannot outlive their parent question.
type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []*Reply  `json:"replies"`
}

// Reply is a single answer attached to a question. The AIAuthor label
// marks machine-generated content.
type Reply struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member is the ephemeral identity of one live connection. It exists only
// for the lifetime of the connection and is never persisted.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MaintenanceStatus is the snapshot broadcast on every maintenance
// transition and attached to 503 responses. Until is nil when no expiry
// is scheduled.
type MaintenanceStatus struct {
	Active  bool       `json:"status"`
	Message string     `json:"message"`
	LogoURL string     `json:"logoUrl"`
	Until   *time.Time `json:"until"`
}

// Event is the envelope for every server-to-client notification.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ClientMessage is the envelope for messages received from a connection.
// Unknown types are ignored by the handler.
type ClientMessage struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
}
