package protocol

import (
	"time"

	"github.com/switchwatch/switchwatch/pkg/types"
)

// Kind is the value of an Envelope's "type" field.
type Kind string

const (
	KindInitialData    Kind = "initial_data"
	KindPortUpdate     Kind = "port_update"
	KindGetPortStatus  Kind = "get_port_status"
	KindGetSwitchPorts Kind = "get_switch_ports"
	KindPortStatus     Kind = "port_status"
	KindSwitchPorts    Kind = "switch_ports"
	KindError          Kind = "error"
)

// Class groups kinds by their role in a conversation.
type Class string

const (
	ClassInitialState Class = "initial_state"
	ClassUpdate       Class = "update"
	ClassRequest      Class = "request"
	ClassResponse     Class = "response"
)

// Class returns the role of k, or "" for an unknown kind.
func (k Kind) Class() Class {
	switch k {
	case KindInitialData:
		return ClassInitialState
	case KindPortUpdate:
		return ClassUpdate
	case KindGetPortStatus, KindGetSwitchPorts:
		return ClassRequest
	case KindPortStatus, KindSwitchPorts, KindError:
		return ClassResponse
	}
	return ""
}

// Envelope is one message on the wire. Payload holds the value type that
// matches Type (InitialData for KindInitialData, and so on).
type Envelope struct {
	Type      Kind
	Timestamp time.Time
	Payload   any
}

// New returns an Envelope stamped with the current UTC time.
func New(kind Kind, payload any) Envelope {
	return Envelope{Type: kind, Timestamp: time.Now().UTC(), Payload: payload}
}

// InitialData is sent once to every client right after it connects.
type InitialData struct {
	Entities []types.MonitoredEntity `json:"entities"`
}

// PortUpdate is the periodic broadcast payload. Sequence increases by one per
// broadcast tick; every client that receives a given tick sees the same value.
type PortUpdate struct {
	Sequence uint64         `json:"sequence"`
	Updates  []EntityUpdate `json:"updates"`
}

// EntityUpdate carries the ports of one switch selected for this tick.
type EntityUpdate struct {
	EntityID     string              `json:"entity_id"`
	EntityName   string              `json:"entity_name"`
	SubResources []types.SubResource `json:"sub_resources"`
}

// GetPortStatus asks for the current detail of a single port.
type GetPortStatus struct {
	EntityID      string `json:"entity_id"`
	SubResourceID int    `json:"sub_resource_id"`
}

// GetSwitchPorts asks for every port of one switch.
type GetSwitchPorts struct {
	EntityID string `json:"entity_id"`
}

// PortStatus answers GetPortStatus.
type PortStatus struct {
	EntityID      string            `json:"entity_id"`
	SubResourceID int               `json:"sub_resource_id"`
	Data          types.SubResource `json:"data"`
}

// SwitchPorts answers GetSwitchPorts. TotalPorts always equals len(Ports).
type SwitchPorts struct {
	EntityID    string              `json:"entity_id"`
	EntityName  string              `json:"entity_name"`
	TotalPorts  int                 `json:"total_ports"`
	ActivePorts int                 `json:"active_ports"`
	Ports       []types.SubResource `json:"ports"`
}

// Error codes carried by ErrorResponse.
const (
	CodeUnknownEntity      = "unknown_entity"
	CodeUnknownSubResource = "unknown_sub_resource"
	CodeUnsupported        = "unsupported_request"
	CodeInternal           = "internal"
)

// ErrorResponse is the error-tagged reply to a request that could not be
// served. The connection stays open.
type ErrorResponse struct {
	Request       Kind   `json:"request"`
	EntityID      string `json:"entity_id,omitempty"`
	SubResourceID int    `json:"sub_resource_id,omitempty"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}
