package policy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchwatch/switchwatch/pkg/types"
)

func ports(n int) []types.SubResource {
	out := make([]types.SubResource, n)
	for i := range out {
		out[i] = types.SubResource{Number: i + 1, Status: types.StatusUp}
	}
	return out
}

func TestNew(t *testing.T) {
	intn := rand.New(rand.NewSource(1)).Intn

	p, err := New("", 1, 5, intn)
	require.NoError(t, err)
	assert.Equal(t, NameRandom, p.Name())

	p, err = New(NameAll, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, NameAll, p.Name())

	_, err = New("diff", 1, 5, intn)
	assert.Error(t, err)

	_, err = New(NameRandom, 5, 1, intn)
	assert.Error(t, err, "max below min")

	_, err = New(NameRandom, 1, 5, nil)
	assert.Error(t, err, "missing source")
}

func TestAll_SelectsEverything(t *testing.T) {
	in := ports(24)
	out := All{}.Select(in)
	assert.Equal(t, in, out)

	out[0].Status = types.StatusDown
	assert.Equal(t, types.StatusUp, in[0].Status, "Select must not alias its input")
}

func TestRandom_BoundsAndOrder(t *testing.T) {
	r, err := NewRandom(1, 5, rand.New(rand.NewSource(42)).Intn)
	require.NoError(t, err)
	in := ports(24)

	for i := 0; i < 500; i++ {
		out := r.Select(in)
		require.GreaterOrEqual(t, len(out), 1)
		require.LessOrEqual(t, len(out), 5)

		seen := make(map[int]bool)
		for j, p := range out {
			assert.False(t, seen[p.Number], "duplicate port %d", p.Number)
			seen[p.Number] = true
			if j > 0 {
				assert.Less(t, out[j-1].Number, p.Number, "ports must be ascending")
			}
		}
	}
}

func TestRandom_ClampsToAvailablePorts(t *testing.T) {
	r, err := NewRandom(10, 10, rand.New(rand.NewSource(1)).Intn)
	require.NoError(t, err)
	assert.Len(t, r.Select(ports(4)), 4)
	assert.Empty(t, r.Select(nil))
}

func TestRandom_EveryPortEventuallySelected(t *testing.T) {
	r, err := NewRandom(1, 5, rand.New(rand.NewSource(7)).Intn)
	require.NoError(t, err)
	in := ports(24)

	hit := make(map[int]bool)
	for i := 0; i < 200 && len(hit) < len(in); i++ {
		for _, p := range r.Select(in) {
			hit[p.Number] = true
		}
	}
	assert.Len(t, hit, len(in))
}
