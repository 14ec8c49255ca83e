package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// SerialUART implements UART over a real TTY via github.com/tarm/serial,
// configured for the BSL's fixed 8-E-1 framing. A background goroutine
// continuously reads from the port into a ring buffer so that Available
// (used by the ACK poller) and RecvByte can be served independently of
// the underlying blocking Read call, the same split teacher host
// drivers in this codebase use between a read loop and its consumers.
type SerialUART struct {
	device string

	mu   sync.Mutex
	port *serial.Port

	rx       *ringBuffer
	stopChan chan struct{}
	doneChan chan struct{}
}

// OpenSerialUART opens device at the BSL's initial 9600 baud, 8 data
// bits, even parity, one stop bit.
func OpenSerialUART(device string) (*SerialUART, error) {
	u := &SerialUART{
		device:   device,
		rx:       newRingBuffer(512),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	if err := u.openAt(9600); err != nil {
		return nil, err
	}

	go u.readLoop()

	return u, nil
}

func (u *SerialUART) openAt(baud int) error {
	cfg := &serial.Config{
		Name:        u.device,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityEven,
		StopBits:    serial.Stop1,
		ReadTimeout: 50 * time.Millisecond,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", u.device, err)
	}

	u.mu.Lock()
	u.port = port
	u.mu.Unlock()

	return nil
}

func (u *SerialUART) readLoop() {
	defer close(u.doneChan)

	buf := make([]byte, 64)
	for {
		select {
		case <-u.stopChan:
			return
		default:
		}

		u.mu.Lock()
		port := u.port
		u.mu.Unlock()
		if port == nil {
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}
		for i := 0; i < n; i++ {
			u.rx.push(buf[i])
		}
	}
}

// SendByte writes one byte to the port.
func (u *SerialUART) SendByte(b byte) error {
	u.mu.Lock()
	port := u.port
	u.mu.Unlock()

	n, err := port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("transport: send byte: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("transport: short write (%d/1 bytes)", n)
	}
	return nil
}

// RecvByte blocks until a byte is available in the ring buffer.
func (u *SerialUART) RecvByte() (byte, error) {
	for {
		if b, ok := u.rx.pop(); ok {
			return b, nil
		}
		time.Sleep(time.Microsecond)
	}
}

// Available reports how many bytes are currently buffered.
func (u *SerialUART) Available() (int, error) {
	return u.rx.available(), nil
}

// Configure reopens the port at a new baud rate, used after a
// successful change_baud_rate command. The target is assumed to have
// already switched by the time its ACK was emitted.
func (u *SerialUART) Configure(baud int) error {
	u.mu.Lock()
	port := u.port
	u.mu.Unlock()

	if port != nil {
		_ = port.Close()
	}
	return u.openAt(baud)
}

// Close stops the read loop and closes the underlying port.
func (u *SerialUART) Close() error {
	close(u.stopChan)
	<-u.doneChan

	u.mu.Lock()
	port := u.port
	u.mu.Unlock()

	if port != nil {
		return port.Close()
	}
	return nil
}
