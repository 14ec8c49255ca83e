package bsl

import (
	"github.com/iOperator/msp-embedded-bootloader-host/protocol"
)

// buildMessageFrame constructs the raw bytes of a target->host frame
// carrying a Message core response, for priming a LoopbackUART.
func buildMessageFrame(code protocol.CoreCode) []byte {
	core := []byte{0x3B, byte(code)}
	return wrapFrame(core)
}

// buildDataFrame constructs the raw bytes of a target->host frame
// carrying a Data core response.
func buildDataFrame(data []byte) []byte {
	core := append([]byte{0x3A}, data...)
	return wrapFrame(core)
}

func wrapFrame(core []byte) []byte {
	crc := protocol.Checksum(core)
	frame := []byte{protocol.Header, byte(len(core)), byte(len(core) >> 8)}
	frame = append(frame, core...)
	frame = append(frame, byte(crc), byte(crc>>8))
	return frame
}

// ackThenMessage queues a UART ACK byte followed by a Message frame,
// the standard reply shape for most commands.
func ackThenMessage(ack protocol.UartAck, code protocol.CoreCode) []byte {
	return append([]byte{byte(ack)}, buildMessageFrame(code)...)
}

// ackThenData queues a UART ACK byte followed by a Data frame.
func ackThenData(ack protocol.UartAck, data []byte) []byte {
	return append([]byte{byte(ack)}, buildDataFrame(data)...)
}
