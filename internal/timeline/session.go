package timeline

import "sync"

// Session binds in-flight fetches to the active conversation. A fetch
// started for one conversation must not corrupt the state of another
// when the user navigates away and back before it lands: each fetch
// carries a token, and results whose token no longer matches the active
// conversation are discarded.
type Session struct {
	mu     sync.Mutex
	active string
	epoch  uint64
}

// FetchToken identifies one fetch attempt against one conversation.
type FetchToken struct {
	conversation string
	epoch        uint64
}

// SwitchTo makes conversationID the active conversation and returns a
// token for fetches issued on its behalf. Any token from a previous
// switch is invalidated.
func (s *Session) SwitchTo(conversationID string) FetchToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = conversationID
	s.epoch++
	return FetchToken{conversation: conversationID, epoch: s.epoch}
}

// Active returns the current conversation id.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Accept reports whether a fetch result carrying tok may still be
// applied.
func (s *Session) Accept(tok FetchToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok.conversation == s.active && tok.epoch == s.epoch
}
