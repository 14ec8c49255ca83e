package bsl

import "github.com/iOperator/msp-embedded-bootloader-host/protocol"

// CoreError wraps a non-success BSL core message code (locked, bad
// password, unknown command) returned in a Message response, keeping
// the original code available via Unwrap for errors.As/errors.Is while
// still surfacing a typed variant distinct from transport-layer and
// frame-codec failures.
type CoreError struct {
	Code protocol.CoreCode
}

func (e *CoreError) Error() string {
	return e.Code.Error()
}

func (e *CoreError) Unwrap() error {
	return e.Code
}
