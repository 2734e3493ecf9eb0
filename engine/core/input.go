package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_LEFT   KeyCode = 0x25
	KEY_UP     KeyCode = 0x26
	KEY_RIGHT  KeyCode = 0x27
	KEY_DOWN   KeyCode = 0x28
	KEY_A      KeyCode = 0x41
	KEY_D      KeyCode = 0x44
	KEY_E      KeyCode = 0x45
	KEY_Q      KeyCode = 0x51
	KEY_S      KeyCode = 0x53
	KEY_W      KeyCode = 0x57
	KEYS_MAX_KEYS
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// InputState holds the current and previous keyboard states. Platform
// callbacks write into it and the tick loop reads it.
type InputState struct {
	mu       sync.RWMutex
	current  KeyboardState
	previous KeyboardState
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update copies the current state to the previous one. Call once per tick
// after input has been consumed.
func (s *InputState) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = s.current
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if int(key) >= len(s.current.Keys) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Keys[key] != pressed {
		s.current.Keys[key] = pressed
		LogDebug("key 0x%02x pressed=%t", uint16(key), pressed)
	}
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	if int(key) >= len(s.current.Keys) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Keys[key]
}

func (s *InputState) IsKeyUp(key KeyCode) bool {
	return !s.IsKeyDown(key)
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	if int(key) >= len(s.previous.Keys) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous.Keys[key]
}

// Pressed reports a key that went down during the last tick.
func (s *InputState) Pressed(key KeyCode) bool {
	return s.IsKeyDown(key) && !s.WasKeyDown(key)
}
