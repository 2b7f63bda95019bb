package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
)

// Store holds the process-local conversation state.
type Store struct {
	mu      sync.RWMutex
	session *chat.Session
}

// NewStore bootstraps an empty store; the session is created on first access.
func NewStore() *Store {
	return &Store{}
}

// GetOrInit returns a snapshot of the session, creating it with defaults if absent.
func (s *Store) GetOrInit() chat.Session {
	s.mu.RLock()
	if s.session != nil {
		snapshot := s.session.Clone()
		s.mu.RUnlock()
		return snapshot
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked().Clone()
}

// SetDisplayName stores the trimmed name, or "User" when nothing is left.
func (s *Store) SetDisplayName(raw string) string {
	name := chat.NormalizeDisplayName(raw)

	s.mu.Lock()
	s.ensureLocked().DisplayName = name
	s.mu.Unlock()

	return name
}

// SetTheme overwrites the theme.
func (s *Store) SetTheme(theme chat.Theme) {
	s.mu.Lock()
	s.ensureLocked().Theme = theme
	s.mu.Unlock()
}

// AppendTurn appends a turn to the end of the transcript.
func (s *Store) AppendTurn(userText, botText string) chat.Turn {
	turn := chat.Turn{
		ID:        uuid.NewString(),
		UserText:  userText,
		BotText:   botText,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	session := s.ensureLocked()
	session.Transcript = append(session.Transcript, turn)
	s.mu.Unlock()

	return turn
}

func (s *Store) ensureLocked() *chat.Session {
	if s.session == nil {
		created := chat.NewSession()
		s.session = &created
	}
	return s.session
}
