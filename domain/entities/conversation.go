package entities

import (
	"errors"
	"sync"
)

// TurnRole identifies who authored a conversation turn.
type TurnRole string

const (
	TurnRoleUser TurnRole = "user"
	TurnRoleBot  TurnRole = "bot"
)

// AudioStatus tracks speech synthesis for a bot turn without touching its text.
type AudioStatus string

const (
	AudioStatusNone      AudioStatus = ""
	AudioStatusPreparing AudioStatus = "preparing"
	AudioStatusReady     AudioStatus = "ready"
	AudioStatusFailed    AudioStatus = "failed"
)

// ThinkingPlaceholder is the content shown while a reply is pending.
const ThinkingPlaceholder = "⏳ I'm thinking..."

// ConversationTurn is one entry of the conversation log.
type ConversationTurn struct {
	// ID is shared by a user turn and its bot reply.
	ID      string      `json:"id"`
	Role    TurnRole    `json:"role"`
	Content string      `json:"content"`
	Pending bool        `json:"pending,omitempty"`
	Audio   AudioStatus `json:"audio,omitempty"`
}

var (
	ErrPlaceholderNotFound = errors.New("placeholder not found")
	ErrDuplicateTurn       = errors.New("turn already exists")
)

// ConversationLog is an append-only ordered list of turns. The only in-place
// mutation allowed is resolving the placeholder of a given turn id.
type ConversationLog struct {
	mu    sync.RWMutex
	turns []ConversationTurn
}

// NewConversationLog creates an empty log.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{turns: make([]ConversationTurn, 0)}
}

// BeginTurn appends the user turn and a pending bot placeholder keyed by id.
func (l *ConversationLog) BeginTurn(id, userText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.turns {
		if t.ID == id {
			return ErrDuplicateTurn
		}
	}

	l.turns = append(l.turns,
		ConversationTurn{ID: id, Role: TurnRoleUser, Content: userText},
		ConversationTurn{ID: id, Role: TurnRoleBot, Content: ThinkingPlaceholder, Pending: true},
	)
	return nil
}

// ResolvePlaceholder replaces the pending bot turn for id with content. It
// fails once the placeholder has already been resolved.
func (l *ConversationLog) ResolvePlaceholder(id, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.placeholderIndex(id)
	if i < 0 {
		return ErrPlaceholderNotFound
	}
	l.turns[i] = ConversationTurn{ID: id, Role: TurnRoleBot, Content: content}
	return nil
}

// SetAudioStatus updates the audio side channel of the bot turn for id.
func (l *ConversationLog) SetAudioStatus(id string, status AudioStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].ID == id && l.turns[i].Role == TurnRoleBot && !l.turns[i].Pending {
			l.turns[i].Audio = status
			return true
		}
	}
	return false
}

func (l *ConversationLog) placeholderIndex(id string) int {
	for i := len(l.turns) - 1; i >= 0; i-- {
		t := l.turns[i]
		if t.ID == id && t.Role == TurnRoleBot && t.Pending {
			return i
		}
	}
	return -1
}

// Turns returns a copy of the log in display order.
func (l *ConversationLog) Turns() []ConversationTurn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ConversationTurn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of entries.
func (l *ConversationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Last returns the most recent entry.
func (l *ConversationLog) Last() (ConversationTurn, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.turns) == 0 {
		return ConversationTurn{}, false
	}
	return l.turns[len(l.turns)-1], true
}

// Exchanges returns completed user/bot pairs, oldest first, skipping the
// turns listed in exclude and any turn whose reply is still pending.
func (l *ConversationLog) Exchanges(exclude ...string) [][2]ConversationTurn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	var pairs [][2]ConversationTurn
	for i := 0; i+1 < len(l.turns); i++ {
		u, b := l.turns[i], l.turns[i+1]
		if u.Role != TurnRoleUser || b.Role != TurnRoleBot || u.ID != b.ID {
			continue
		}
		if skip[u.ID] || b.Pending {
			continue
		}
		pairs = append(pairs, [2]ConversationTurn{u, b})
		i++
	}
	return pairs
}
