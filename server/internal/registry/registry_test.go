package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{ id string }

func (c *fakeConn) ID() string { return c.id }

func conns(n int) []*fakeConn {
	out := make([]*fakeConn, n)
	for i := range out {
		out[i] = &fakeConn{id: fmt.Sprintf("c%d", i)}
	}
	return out
}

func TestAddRemove(t *testing.T) {
	r := New[*fakeConn]()
	cs := conns(3)
	for _, c := range cs {
		r.Add(c)
	}
	require.Equal(t, 3, r.Count())

	assert.True(t, r.Remove(cs[1]))
	assert.False(t, r.Remove(cs[1]), "second remove must be a no-op")
	assert.False(t, r.Contains(cs[1]))
	assert.Equal(t, []*fakeConn{cs[0], cs[2]}, r.Snapshot())
}

func TestRemove_Absent(t *testing.T) {
	r := New[*fakeConn]()
	assert.False(t, r.Remove(&fakeConn{id: "ghost"}))
	assert.Equal(t, 0, r.Count())
}

func TestSnapshot_RegistrationOrder(t *testing.T) {
	r := New[*fakeConn]()
	cs := conns(10)
	for _, c := range cs {
		r.Add(c)
	}
	assert.Equal(t, cs, r.Snapshot())
}

func TestSnapshot_IsCopy(t *testing.T) {
	r := New[*fakeConn]()
	cs := conns(2)
	r.Add(cs[0])
	r.Add(cs[1])

	snap := r.Snapshot()
	r.Remove(cs[0])
	assert.Len(t, snap, 2, "snapshot must not observe later removals")
	assert.Equal(t, 1, r.Count())
}

// A random connect/disconnect history leaves exactly the still-connected set.
func TestMembershipMatchesHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := New[*fakeConn]()
	live := make(map[*fakeConn]bool)
	pool := conns(50)

	for i := 0; i < 2000; i++ {
		c := pool[rng.Intn(len(pool))]
		switch {
		case live[c]:
			r.Remove(c)
			delete(live, c)
		default:
			r.Add(c)
			live[c] = true
		}
		if i%97 == 0 {
			r.Snapshot()
		}
	}

	got := r.Snapshot()
	require.Len(t, got, len(live))
	for _, c := range got {
		assert.True(t, live[c], "phantom member %s", c.id)
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	r := New[*fakeConn]()
	cs := conns(100)
	var wg sync.WaitGroup

	for _, c := range cs {
		wg.Add(3)
		go func(c *fakeConn) {
			defer wg.Done()
			r.Add(c)
		}(c)
		go func() {
			defer wg.Done()
			r.Snapshot()
		}()
		go func() {
			defer wg.Done()
			r.Count()
		}()
	}
	wg.Wait()
	require.Equal(t, 100, r.Count())

	removed := make(chan bool, 200)
	for _, c := range cs {
		wg.Add(2)
		// Two racing removers per member: exactly one may win.
		for k := 0; k < 2; k++ {
			go func(c *fakeConn) {
				defer wg.Done()
				removed <- r.Remove(c)
			}(c)
		}
	}
	wg.Wait()
	close(removed)

	wins := 0
	for ok := range removed {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 100, wins)
	assert.Equal(t, 0, r.Count())
}
