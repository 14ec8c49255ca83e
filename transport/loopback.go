package transport

import (
	"io"
	"sync"
)

// LoopbackUART is a scriptable UART double for tests: bytes sent via
// SendByte are recorded in Sent, and RecvByte/Available serve bytes a
// test pushed in with QueueInbound. It does not echo -- callers wire
// up request/response pairs explicitly, mirroring how a real BSL
// target's timing would be scripted in a bench test.
type LoopbackUART struct {
	mu      sync.Mutex
	Sent    []byte
	inbound []byte
	BaudLog []int
	closed  bool
}

// NewLoopbackUART returns an empty loopback transport.
func NewLoopbackUART() *LoopbackUART {
	return &LoopbackUART{}
}

// QueueInbound appends bytes to be served by future RecvByte/Available
// calls, as if the target had just transmitted them.
func (l *LoopbackUART) QueueInbound(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbound = append(l.inbound, b...)
}

func (l *LoopbackUART) SendByte(b byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Sent = append(l.Sent, b)
	return nil
}

func (l *LoopbackUART) RecvByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbound) == 0 {
		return 0, io.EOF
	}
	b := l.inbound[0]
	l.inbound = l.inbound[1:]
	return b, nil
}

func (l *LoopbackUART) Available() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inbound), nil
}

func (l *LoopbackUART) Configure(baud int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.BaudLog = append(l.BaudLog, baud)
	return nil
}

func (l *LoopbackUART) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (l *LoopbackUART) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
