package inventory

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/switchwatch/switchwatch/pkg/types"
)

var (
	speeds   = []string{"1 Gbps", "100 Mbps", "10 Gbps", "Unknown"}
	vlans    = []int{1, 10, 20, 30, 100, 0} // 0: untagged, reported as null
	ipRanges = []string{"192.168.1.", "192.168.0.", "10.0.0.", "172.16.0."}
)

// Simulator fabricates port records for the switches held in a Store.
// Every call returns freshly generated values; nothing is cached between
// calls.
//
// Simulator is safe for concurrent use.
type Simulator struct {
	store *Store

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator returns a Simulator over st. A zero seed uses the current time.
func NewSimulator(st *Store, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		store: st,
		rng:   rand.New(rand.NewSource(seed)),
		now:   time.Now,
	}
}

// Store returns the switch table backing s.
func (s *Simulator) Store() *Store { return s.store }

// CurrentEntities returns every monitored switch in configured order.
func (s *Simulator) CurrentEntities() []types.MonitoredEntity {
	return s.store.List()
}

// SubResourcesFor returns ports 1..N of the switch with the given id.
func (s *Simulator) SubResourcesFor(id string) ([]types.SubResource, error) {
	e, ok := s.store.Get(id)
	if !ok {
		return nil, &UnknownEntityError{ID: id}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ports := make([]types.SubResource, 0, e.Entity.SubResourceCount)
	for n := 1; n <= e.Entity.SubResourceCount; n++ {
		ports = append(ports, s.portLocked(n))
	}
	return ports, nil
}

// SubResource returns port n of the switch with the given id.
func (s *Simulator) SubResource(id string, n int) (types.SubResource, error) {
	e, ok := s.store.Get(id)
	if !ok {
		return types.SubResource{}, &UnknownEntityError{ID: id}
	}
	if n < 1 || n > e.Entity.SubResourceCount {
		return types.SubResource{}, &UnknownSubResourceError{EntityID: id, Number: n, Count: e.Entity.SubResourceCount}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portLocked(n), nil
}

// Intn returns a value in [0, n) from the simulator's source. The broadcast
// selection policy draws from here so a seeded run is reproducible end to end.
func (s *Simulator) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// portLocked generates one port record. s.mu must be held.
func (s *Simulator) portLocked(n int) types.SubResource {
	r := s.rng
	p := types.SubResource{
		Number:        n,
		Status:        types.Statuses[r.Intn(len(types.Statuses))],
		MACAddress:    macAddress(r),
		Speed:         speeds[r.Intn(len(speeds))],
		Duplex:        "Full",
		PoEStatus:     "Disabled",
		LastSeen:      s.now().UTC(),
		UptimeSeconds: between(r, 100, 86400),
		Errors: types.ErrorCounters{
			CRCErrors:      between(r, 0, 10),
			Collisions:     between(r, 0, 5),
			LateCollisions: between(r, 0, 2),
		},
		Traffic: types.TrafficCounters{
			BytesIn:    int64(between(r, 1_000_000, 100_000_000)),
			BytesOut:   int64(between(r, 1_000_000, 100_000_000)),
			PacketsIn:  int64(between(r, 10_000, 1_000_000)),
			PacketsOut: int64(between(r, 10_000, 1_000_000)),
		},
	}
	if r.Float64() > 0.4 {
		ip := ipRanges[r.Intn(len(ipRanges))] + strconv.Itoa(between(r, 1, 254))
		p.IPAddress = &ip
	}
	if v := vlans[r.Intn(len(vlans))]; v != 0 {
		p.VLAN = &v
	}
	if r.Float64() > 0.7 {
		p.PoEStatus = "Enabled"
	}
	return p
}

// between returns a uniform value in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}

func macAddress(r *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(r.Intn(256))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}
