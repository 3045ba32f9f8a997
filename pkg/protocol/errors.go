package protocol

import "fmt"

// EncodingError reports a payload that does not satisfy its kind's schema.
type EncodingError struct {
	Type   Kind
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: encode %q: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: encode %q: %s", e.Type, e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError reports a frame that could not be turned into an Envelope.
// Type is empty when the frame was not valid JSON.
type DecodingError struct {
	Type   Kind
	Reason string
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: decode %q: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: decode %q: %s", e.Type, e.Reason)
}

func (e *DecodingError) Unwrap() error { return e.Err }
