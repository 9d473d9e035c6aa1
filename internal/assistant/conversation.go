package assistant

import (
	"slices"
	"sync"
	"time"
)

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation log
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Conversation is a bounded, append-only message log
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	limit    int
	now      func() time.Time
	touched  time.Time
}

// NewConversation creates a log keeping at most limit messages
func NewConversation(limit int) *Conversation {
	return newConversation(limit, time.Now)
}

func newConversation(limit int, now func() time.Time) *Conversation {
	return &Conversation{limit: limit, now: now, touched: now()}
}

// Append adds a message, dropping the oldest beyond the limit
func (c *Conversation) Append(role Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()
	c.messages = append(c.messages, Message{Role: role, Text: text, At: c.touched.UTC()})
	if c.limit > 0 && len(c.messages) > c.limit {
		c.messages = slices.Clone(c.messages[len(c.messages)-c.limit:])
	}
}

// Messages returns a copy of the log
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.messages)
	if out == nil {
		out = []Message{}
	}
	return out
}

func (c *Conversation) lastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// Conversations holds one log per session
type Conversations struct {
	mu    sync.Mutex
	logs  map[string]*Conversation
	limit int
	now   func() time.Time
}

// NewConversations creates an empty set of logs
func NewConversations(limit int) *Conversations {
	return &Conversations{logs: make(map[string]*Conversation), limit: limit, now: time.Now}
}

// Get returns the session's log, creating it on first use
func (c *Conversations) Get(session string) *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.logs[session]
	if !ok {
		conv = newConversation(c.limit, c.now)
		c.logs[session] = conv
	}
	return conv
}

// Delete drops the session's log
func (c *Conversations) Delete(session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logs, session)
}

// Len returns the number of logs held
func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.logs)
}

// EvictIdle drops logs with no message for longer than ttl and returns how
// many were removed
func (c *Conversations) EvictIdle(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, conv := range c.logs {
		if conv.lastTouched().Before(cutoff) {
			delete(c.logs, id)
			removed++
		}
	}
	return removed
}
