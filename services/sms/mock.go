package smssvc

import (
	"context"
	"sync"
)

// SentSMS is one message captured by SenderMock.
type SentSMS struct {
	To      string
	Message string
}

// SenderMock records messages instead of delivering them.
type SenderMock struct {
	// Err, when set, is returned from every Send call.
	Err error

	mu   sync.Mutex
	sent []SentSMS
}

var _ Sender = (*SenderMock)(nil)

func (m *SenderMock) Send(_ context.Context, to, message string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentSMS{To: to, Message: message})
	return nil
}

// SentMessages returns everything recorded so far.
func (m *SenderMock) SentMessages() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}
