// Package policy decides which ports of a switch go into a broadcast tick.
//
// Clients only see what a policy selects, so the policy sets how quickly a
// client's view converges on the real state. With All every tick carries the
// full state. With Random (the default) each port has a bounded chance of
// being refreshed per tick, and a port's last-seen value can stay stale for
// several ticks. Clients that need an exact picture ask with get_switch_ports.
package policy

import (
	"fmt"
	"sort"

	"github.com/switchwatch/switchwatch/pkg/types"
)

// Policy names accepted by New.
const (
	NameRandom = "random"
	NameAll    = "all"
)

// Policy selects a subset of one switch's ports for a single tick.
// Implementations must not modify ports and must return ports in ascending
// port-number order.
type Policy interface {
	Name() string
	Select(ports []types.SubResource) []types.SubResource
}

// New builds the named policy. min and max bound the per-switch sample size
// for the random policy; intn supplies randomness in [0, n).
func New(name string, min, max int, intn func(int) int) (Policy, error) {
	switch name {
	case NameRandom, "":
		return NewRandom(min, max, intn)
	case NameAll:
		return All{}, nil
	default:
		return nil, fmt.Errorf("policy: unknown policy %q: want %s|%s", name, NameRandom, NameAll)
	}
}

// All selects every port.
type All struct{}

func (All) Name() string { return NameAll }

func (All) Select(ports []types.SubResource) []types.SubResource {
	out := make([]types.SubResource, len(ports))
	copy(out, ports)
	return out
}

// Random selects between Min and Max distinct ports uniformly at random.
type Random struct {
	Min, Max int
	intn     func(int) int
}

// NewRandom validates the bounds and returns a Random policy.
func NewRandom(min, max int, intn func(int) int) (*Random, error) {
	if min < 0 || max < min {
		return nil, fmt.Errorf("policy: invalid random bounds [%d, %d]", min, max)
	}
	if intn == nil {
		return nil, fmt.Errorf("policy: random policy needs a source")
	}
	return &Random{Min: min, Max: max, intn: intn}, nil
}

func (r *Random) Name() string { return NameRandom }

func (r *Random) Select(ports []types.SubResource) []types.SubResource {
	k := r.Min + r.intn(r.Max-r.Min+1)
	if k > len(ports) {
		k = len(ports)
	}

	// Partial Fisher-Yates over indices.
	idx := make([]int, len(ports))
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := idx[:k]
	sort.Ints(picked)

	out := make([]types.SubResource, 0, k)
	for _, i := range picked {
		out = append(out, ports[i])
	}
	return out
}
