package follow

import (
	"log/slog"

	"github.com/switchwatch/switchwatch/pkg/protocol"
	"github.com/switchwatch/switchwatch/pkg/types"
)

// Log writes a one-line summary of env at info level (warn for errors).
func Log(env protocol.Envelope) {
	attrs := append([]any{"type", env.Type, "timestamp", env.Timestamp}, summarize(env)...)
	if env.Type == protocol.KindError {
		slog.Warn("follow: envelope", attrs...)
		return
	}
	slog.Info("follow: envelope", attrs...)
}

// summarize returns log attributes describing the payload of env.
func summarize(env protocol.Envelope) []any {
	switch p := env.Payload.(type) {
	case protocol.InitialData:
		return []any{"entities", len(p.Entities)}
	case protocol.PortUpdate:
		ports, up := 0, 0
		for _, u := range p.Updates {
			ports += len(u.SubResources)
			up += types.CountUp(u.SubResources)
		}
		return []any{"sequence", p.Sequence, "entities", len(p.Updates), "ports", ports, "up", up}
	case protocol.SwitchPorts:
		return []any{"entity", p.EntityID, "name", p.EntityName, "total", p.TotalPorts, "active", p.ActivePorts}
	case protocol.PortStatus:
		return []any{"entity", p.EntityID, "port", p.SubResourceID, "status", p.Data.Status}
	case protocol.ErrorResponse:
		return []any{"request", p.Request, "code", p.Code, "message", p.Message}
	}
	return nil
}
