package domain

// Origin tags who produced a conversation turn.
type Origin string

const (
	OriginUser  Origin = "User"
	OriginAgent Origin = "Agent"
)

// ConversationTurn is one utterance received from the conversation feed.
// Turns are owned by the feed and never mutated by the lookup pipeline.
type ConversationTurn struct {
	ID            string `json:"id"`
	InteractionID string `json:"interactionId"`
	Text          string `json:"text"`
	Origin        Origin `json:"origin"`
}

// IsUser reports whether the turn was spoken by the player.
func (t ConversationTurn) IsUser() bool {
	return t.Origin == OriginUser
}

// ConnectionState mirrors the conversation controller's connection lifecycle.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "Connecting"
	StateConnected    ConnectionState = "Connected"
	StateDisconnected ConnectionState = "Disconnected"
)

// SessionState is the durable snapshot of a conversation session: the ids of
// interactions that already triggered a lookup plus the latest lookup result.
type SessionState struct {
	SessionID string
	Handled   []string
	Result    Result
	Version   int64
}
