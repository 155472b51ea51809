package telegram

import (
	"sync"
	"time"
)

// maxHistoryLength caps how many exchanges are kept per chat.
const maxHistoryLength = 50

// Exchange is one answered research question kept in chat history.
type Exchange struct {
	Query      string
	Answer     string
	Confidence float64
	FromCache  bool
	AskedAt    time.Time
}

// Memory keeps a bounded per-chat history of answered questions.
type Memory struct {
	mu    sync.Mutex
	chats map[int64][]Exchange
}

// NewMemory creates an empty conversation memory.
func NewMemory() *Memory {
	return &Memory{chats: make(map[int64][]Exchange)}
}

// Record appends an exchange to a chat's history, dropping the oldest
// entries once the cap is reached.
func (m *Memory) Record(chatID int64, ex Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.chats[chatID], ex)
	if len(history) > maxHistoryLength {
		history = history[len(history)-maxHistoryLength:]
	}
	m.chats[chatID] = history
}

// Recent returns up to n exchanges for a chat, newest first.
func (m *Memory) Recent(chatID int64, n int) []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.chats[chatID]
	if n > len(history) {
		n = len(history)
	}
	out := make([]Exchange, 0, n)
	for i := len(history) - 1; i >= len(history)-n; i-- {
		out = append(out, history[i])
	}
	return out
}

// Clear forgets a chat's history.
func (m *Memory) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
}
