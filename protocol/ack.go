package protocol

// ackRetries and ackRetryDelayUs implement the bounded-retry poll for
// the one-byte UART-layer acknowledgement: up to 1000 checks, 10us
// apart, giving a 10ms ceiling before the synthetic AckTimeOut.
const (
	ackRetries      = 1000
	ackRetryDelayUs = 10
)

// AvailabilityReader is the minimal transport capability ReceiveAck
// needs: report whether a byte is waiting, and fetch it.
type AvailabilityReader interface {
	ByteReader
	Available() (int, error)
}

// Delayer performs a blocking microsecond-granularity delay.
type Delayer interface {
	DelayMicroseconds(us uint32)
}

// ReceiveAck polls u up to ackRetries times, sleeping ackRetryDelayUs
// between polls, and returns the first byte that becomes available. If
// the retry budget elapses with nothing received, it returns the
// synthetic AckTimeOut. It never parses a frame — the ACK is a single
// raw byte that precedes any BSL core response.
func ReceiveAck(u AvailabilityReader, clk Delayer) UartAck {
	for i := 0; i < ackRetries; i++ {
		clk.DelayMicroseconds(ackRetryDelayUs)
		n, err := u.Available()
		if err != nil || n <= 0 {
			continue
		}
		b, err := u.RecvByte()
		if err != nil {
			return AckUnknownError
		}
		return UartAck(b)
	}
	return AckTimeOut
}
