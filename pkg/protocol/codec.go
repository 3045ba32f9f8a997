package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// wireEnvelope is the JSON shape of an Envelope.
type wireEnvelope struct {
	Type      Kind            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Encode validates env against its kind's schema and serializes it.
func Encode(env Envelope) ([]byte, error) {
	if env.Timestamp.IsZero() {
		return nil, &EncodingError{Type: env.Type, Reason: "missing timestamp"}
	}
	if err := validatePayload(env.Type, env.Payload); err != nil {
		return nil, &EncodingError{Type: env.Type, Reason: err.Error()}
	}

	data, err := json.Marshal(env.Payload)
	if err != nil {
		return nil, &EncodingError{Type: env.Type, Reason: "marshal payload", Err: err}
	}
	out, err := json.Marshal(wireEnvelope{
		Type:      env.Type,
		Timestamp: env.Timestamp,
		Data:      data,
	})
	if err != nil {
		return nil, &EncodingError{Type: env.Type, Reason: "marshal envelope", Err: err}
	}
	return out, nil
}

// MustEncode is Encode for envelopes built from constants in tests and
// fixtures. It panics on error.
func MustEncode(env Envelope) []byte {
	b, err := Encode(env)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses one frame. Requests are checked for their required fields;
// server-originated kinds are decoded as-is so consumers can use the same
// function.
func Decode(frame []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(frame, &w); err != nil {
		return Envelope{}, &DecodingError{Reason: "malformed json", Err: err}
	}
	if w.Type == "" {
		return Envelope{}, &DecodingError{Reason: "missing type"}
	}

	env := Envelope{Type: w.Type, Timestamp: w.Timestamp}
	var err error
	switch w.Type {
	case KindInitialData:
		env.Payload, err = decodeData[InitialData](w.Data)
	case KindPortUpdate:
		env.Payload, err = decodeData[PortUpdate](w.Data)
	case KindPortStatus:
		env.Payload, err = decodeData[PortStatus](w.Data)
	case KindSwitchPorts:
		env.Payload, err = decodeData[SwitchPorts](w.Data)
	case KindError:
		env.Payload, err = decodeData[ErrorResponse](w.Data)
	case KindGetPortStatus:
		var req GetPortStatus
		if req, err = decodeData[GetPortStatus](w.Data); err == nil {
			err = validatePayload(w.Type, req)
		}
		env.Payload = req
	case KindGetSwitchPorts:
		var req GetSwitchPorts
		if req, err = decodeData[GetSwitchPorts](w.Data); err == nil {
			err = validatePayload(w.Type, req)
		}
		env.Payload = req
	default:
		return Envelope{}, &DecodingError{Type: w.Type, Reason: "unknown type"}
	}
	if err != nil {
		return Envelope{}, &DecodingError{Type: w.Type, Reason: "invalid data", Err: err}
	}
	return env, nil
}

// decodeData unmarshals raw into a T. Absent or null data yields the zero T
// and lets validation report what is missing.
func decodeData[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// validatePayload checks that payload is the value type registered for kind
// and that its required fields are present.
func validatePayload(kind Kind, payload any) error {
	switch kind {
	case KindInitialData:
		p, ok := payload.(InitialData)
		if !ok {
			return mismatch(payload)
		}
		for i, e := range p.Entities {
			if e.ID == "" {
				return fmt.Errorf("entities[%d]: id is required", i)
			}
		}
	case KindPortUpdate:
		p, ok := payload.(PortUpdate)
		if !ok {
			return mismatch(payload)
		}
		for i, u := range p.Updates {
			if u.EntityID == "" {
				return fmt.Errorf("updates[%d]: entity_id is required", i)
			}
		}
	case KindGetPortStatus:
		p, ok := payload.(GetPortStatus)
		if !ok {
			return mismatch(payload)
		}
		if p.EntityID == "" {
			return fmt.Errorf("entity_id is required")
		}
		if p.SubResourceID < 1 {
			return fmt.Errorf("sub_resource_id must be >= 1, got %d", p.SubResourceID)
		}
	case KindGetSwitchPorts:
		p, ok := payload.(GetSwitchPorts)
		if !ok {
			return mismatch(payload)
		}
		if p.EntityID == "" {
			return fmt.Errorf("entity_id is required")
		}
	case KindPortStatus:
		p, ok := payload.(PortStatus)
		if !ok {
			return mismatch(payload)
		}
		if p.EntityID == "" {
			return fmt.Errorf("entity_id is required")
		}
		if p.SubResourceID < 1 {
			return fmt.Errorf("sub_resource_id must be >= 1, got %d", p.SubResourceID)
		}
	case KindSwitchPorts:
		p, ok := payload.(SwitchPorts)
		if !ok {
			return mismatch(payload)
		}
		if p.EntityID == "" {
			return fmt.Errorf("entity_id is required")
		}
		if p.TotalPorts != len(p.Ports) {
			return fmt.Errorf("total_ports %d does not match %d ports", p.TotalPorts, len(p.Ports))
		}
	case KindError:
		p, ok := payload.(ErrorResponse)
		if !ok {
			return mismatch(payload)
		}
		if p.Code == "" || p.Message == "" {
			return fmt.Errorf("code and message are required")
		}
	default:
		return fmt.Errorf("unknown type")
	}
	return nil
}

func mismatch(payload any) error {
	return fmt.Errorf("payload type %T does not match", payload)
}
