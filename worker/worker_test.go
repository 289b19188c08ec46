package worker

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BealFoundation/BealSearch/manager"
	"github.com/BealFoundation/BealSearch/sieve"
)

// slowPow keeps the expected survivors independent of the sieve kernels.
func slowPow(base, exp, mod uint32) uint32 {
	r := uint64(1) % uint64(mod)
	for i := uint32(0); i < exp; i++ {
		r = r * uint64(base) % uint64(mod)
	}
	return uint32(r)
}

func refSurvivors(maxb, maxp uint32, moduli []uint32) map[sieve.Point]bool {
	gcd := func(u, v uint32) uint32 {
		for v != 0 {
			u, v = v, u%v
		}
		return u
	}
	passes := func(a, x, b, y uint32) bool {
		for _, m := range moduli {
			sum := (uint64(slowPow(a, x, m)) + uint64(slowPow(b, y, m))) % uint64(m)
			found := false
			for c := uint32(1); c <= maxb && !found; c++ {
				for z := uint32(3); z <= maxp; z++ {
					if uint64(slowPow(c, z, m)) == sum {
						found = true
						break
					}
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	hits := make(map[sieve.Point]bool)
	for a := uint32(1); a <= maxb; a++ {
		for b := uint32(1); b <= a; b++ {
			if gcd(a, b) != 1 {
				continue
			}
			for x := uint32(3); x <= maxp; x++ {
				for y := uint32(3); y <= maxp; y++ {
					if passes(a, x, b, y) {
						hits[sieve.Point{A: a, X: x, B: b, Y: y}] = true
					}
				}
			}
		}
	}
	return hits
}

// End-to-end: a manager hands out every partition of a tiny search, one
// worker sweeps them all, and the manager ends up holding exactly the
// survivors a brute-force reference predicts.
func TestWorkerCompletesSearch(t *testing.T) {
	cfg := manager.Config{MaxBase: 5, MaxPow: 4, Moduli: []uint32{5, 7}}
	m, err := manager.New(cfg)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go m.Serve(ln)
	defer m.Close()

	w, err := New(Config{Manager: ln.Addr().String(), Poll: 10 * time.Millisecond})
	require.NoError(t, err)

	abort := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- w.Run(abort) }()

	deadline := time.After(30 * time.Second)
	for !m.Done() {
		select {
		case err := <-done:
			t.Fatalf("worker exited early: %v", err)
		case <-deadline:
			t.Fatal("search did not complete in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(abort)
	require.NoError(t, <-done)

	want := refSurvivors(cfg.MaxBase, cfg.MaxPow, cfg.Moduli)
	got := make(map[sieve.Point]bool)
	for _, p := range m.Hits() {
		require.False(t, got[p], "survivor %+v reported twice", p)
		got[p] = true
	}
	require.Equal(t, want, got)
}

func TestWorkerReusesCachedTables(t *testing.T) {
	w, err := New(Config{Manager: "localhost:0"})
	require.NoError(t, err)

	spec := manager.WorkSpec{MaxBase: 4, MaxPow: 4, Moduli: []uint32{5, 7}, A: 3}
	s1, err := w.ensureSearch(spec)
	require.NoError(t, err)

	// Same spec: same driver.
	s2, err := w.ensureSearch(spec)
	require.NoError(t, err)
	require.Same(t, s1, s2)

	// Overlapping re-spec: new driver, cached tables carried over.
	respec := manager.WorkSpec{MaxBase: 4, MaxPow: 4, Moduli: []uint32{7, 11}, A: 3}
	s3, err := w.ensureSearch(respec)
	require.NoError(t, err)
	require.NotSame(t, s1, s3)
	require.Equal(t, []uint32{7, 11}, s3.Moduli())

	cached, ok := w.tables.Get(uint32(7))
	require.True(t, ok)
	require.Equal(t, uint32(7), cached.(*sieve.Table).Mod())
}

func TestWorkerConfigErrors(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
