// Package trigger picks the conversation turn that should start a weather lookup.
package trigger

import (
	"errors"
	"strings"

	"weather-agent/internal/domain"
)

// DefaultKeyword is the word a user turn must mention to start a lookup.
const DefaultKeyword = "weather"

// Seen reports whether an interaction was already handled.
type Seen interface {
	Contains(interactionID string) bool
}

// Filter selects user turns mentioning a keyword.
type Filter struct {
	keyword string
}

// New returns a Filter matching keyword case-insensitively.
func New(keyword string) (*Filter, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.New("trigger: keyword must not be empty")
	}
	return &Filter{keyword: strings.ToLower(keyword)}, nil
}

// Keyword returns the normalized keyword.
func (f *Filter) Keyword() string {
	return f.keyword
}

// Select returns the earliest turn that came from the user, whose interaction
// is not in seen, and whose text contains the keyword. ok is false when no
// turn qualifies.
func (f *Filter) Select(turns []domain.ConversationTurn, seen Seen) (domain.ConversationTurn, bool) {
	for _, turn := range turns {
		if !turn.IsUser() {
			continue
		}
		if seen != nil && seen.Contains(turn.InteractionID) {
			continue
		}
		if strings.Contains(strings.ToLower(turn.Text), f.keyword) {
			return turn, true
		}
	}
	return domain.ConversationTurn{}, false
}
