package types

import "time"

// Status is the operational state of a single port.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Statuses lists every valid Status in a stable order.
var Statuses = []Status{StatusUp, StatusDown, StatusError, StatusUnknown}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusError, StatusUnknown:
		return true
	}
	return false
}

// MonitoredEntity is one managed switch. ID is its management address.
type MonitoredEntity struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SubResourceCount int    `json:"sub_resource_count"`
}

// SubResource is one port of a MonitoredEntity. Ports are numbered from 1.
type SubResource struct {
	Number     int    `json:"port_number"`
	Status     Status `json:"status"`
	MACAddress string `json:"mac_address"`

	// IPAddress and VLAN are nil when nothing is learned on the port.
	IPAddress *string `json:"ip_address"`
	VLAN      *int    `json:"vlan"`

	Speed         string          `json:"speed"`
	Duplex        string          `json:"duplex"`
	PoEStatus     string          `json:"poe_status"`
	LastSeen      time.Time       `json:"last_seen"`
	UptimeSeconds int             `json:"uptime"`
	Errors        ErrorCounters   `json:"errors"`
	Traffic       TrafficCounters `json:"traffic"`
}

// ErrorCounters are the physical-layer error counters of a port.
type ErrorCounters struct {
	CRCErrors      int `json:"crc_errors"`
	Collisions     int `json:"collisions"`
	LateCollisions int `json:"late_collisions"`
}

// TrafficCounters are the cumulative byte and packet counters of a port.
type TrafficCounters struct {
	BytesIn    int64 `json:"bytes_in"`
	BytesOut   int64 `json:"bytes_out"`
	PacketsIn  int64 `json:"packets_in"`
	PacketsOut int64 `json:"packets_out"`
}

// CountUp returns the number of ports in ports whose status is up.
func CountUp(ports []SubResource) int {
	n := 0
	for _, p := range ports {
		if p.Status == StatusUp {
			n++
		}
	}
	return n
}
