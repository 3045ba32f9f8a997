package inventory

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is matched by every *UnknownEntityError.
var ErrUnknownEntity = errors.New("unknown entity")

// UnknownEntityError reports a request for a switch that is not monitored.
type UnknownEntityError struct {
	ID string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("inventory: unknown entity %q", e.ID)
}

func (e *UnknownEntityError) Is(target error) bool { return target == ErrUnknownEntity }

// UnknownSubResourceError reports a port number outside 1..Count.
type UnknownSubResourceError struct {
	EntityID string
	Number   int
	Count    int
}

func (e *UnknownSubResourceError) Error() string {
	return fmt.Sprintf("inventory: entity %q has no port %d (ports 1-%d)", e.EntityID, e.Number, e.Count)
}
