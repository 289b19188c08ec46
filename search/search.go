// Package search drives the modular sieve across the candidate space of the
// generalized Fermat relation a^x + b^y = c^z. It owns one immutable residue
// table per configured modulus and sweeps single-a partitions against all of
// them, short-circuiting on the first modulus that rules a quadruple out.
//
// A quadruple that survives every table is a sieve survivor, nothing more:
// passing finitely many residue tests is necessary but not sufficient, and
// exact big-integer verification of a^x + b^y == c^z is still required
// before a survivor can be called a counterexample.
package search

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/errgroup"

	"github.com/BealFoundation/BealSearch/sieve"
)

// ErrAborted is returned by Sweep when the abort channel fires before the
// partition is exhausted. Survivors found up to that point are still
// returned alongside it.
var ErrAborted = errors.New("search: sweep aborted")

// table is the sieve surface a sweep relies on; *sieve.Table satisfies it.
type table interface {
	Get(c, z uint32) uint32
	Exists(v uint32) bool
	Mod() uint32
}

// Config bounds a search and names its sieve moduli.
type Config struct {
	MaxBase uint32
	MaxPow  uint32
	Moduli  []uint32
}

func (cfg Config) check() error {
	if cfg.MaxBase == 0 {
		return errors.New("search: max base must be positive")
	}
	if cfg.MaxPow <= 2 {
		return fmt.Errorf("search: max power must exceed 2, got %d", cfg.MaxPow)
	}
	if len(cfg.Moduli) == 0 {
		return errors.New("search: no sieve moduli configured")
	}
	return nil
}

// Search is the sieve driver. Its residue tables are built once and never
// mutated, so any number of sweep goroutines may share them.
type Search struct {
	maxb, maxp uint32
	tables     []table
	meter      metrics.Meter
	log        log.Logger
}

// New builds one residue table per configured modulus, in parallel. The
// first table that fails to build aborts construction; a Search is never
// returned half-built.
func New(cfg Config) (*Search, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	start := time.Now()
	tables := make([]table, len(cfg.Moduli))
	var g errgroup.Group
	for i, mod := range cfg.Moduli {
		i, mod := i, mod
		g.Go(func() error {
			t, err := sieve.NewTable(cfg.MaxBase, cfg.MaxPow, mod)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s := newSearch(cfg.MaxBase, cfg.MaxPow, tables)
	s.log.Info("Built residue tables", "tables", len(tables), "maxb", cfg.MaxBase,
		"maxp", cfg.MaxPow, "elapsed", time.Since(start))
	return s, nil
}

// NewWithTables assembles a driver from prebuilt tables; a worker reusing
// cached tables takes this path. Every table must cover the given bounds.
func NewWithTables(maxb, maxp uint32, tables []*sieve.Table) (*Search, error) {
	if len(tables) == 0 {
		return nil, errors.New("search: no residue tables")
	}
	ts := make([]table, len(tables))
	for i, t := range tables {
		if t.MaxBase() != maxb || t.MaxPow() != maxp {
			return nil, fmt.Errorf("search: table for modulus %d covers [1,%d]x[3,%d], want [1,%d]x[3,%d]",
				t.Mod(), t.MaxBase(), t.MaxPow(), maxb, maxp)
		}
		ts[i] = t
	}
	return newSearch(maxb, maxp, ts), nil
}

func newSearch(maxb, maxp uint32, tables []table) *Search {
	return &Search{
		maxb:   maxb,
		maxp:   maxp,
		tables: tables,
		meter:  metrics.NewMeter(),
		log:    log.New("module", "search"),
	}
}

// MaxBase returns the largest base the driver sweeps.
func (s *Search) MaxBase() uint32 { return s.maxb }

// MaxPow returns the largest exponent the driver sweeps.
func (s *Search) MaxPow() uint32 { return s.maxp }

// Moduli returns the sieve moduli in table order.
func (s *Search) Moduli() []uint32 {
	mods := make([]uint32, len(s.tables))
	for i, t := range s.tables {
		mods[i] = t.Mod()
	}
	return mods
}

// Rate returns the one-minute moving average of candidates tested per
// second across all sweeps of this driver.
func (s *Search) Rate() float64 { return s.meter.Snapshot().Rate1() }

// Close releases the throughput meter. The tables themselves are plain
// memory reclaimed by the collector.
func (s *Search) Close() { s.meter.Stop() }

// Sweep drives a fixed-a cursor to exhaustion and returns the quadruples
// that survived every table. The abort channel is consulted only when the
// base b advances, never inside the hot x/y loops, so cancellation costs
// nothing on the fast path; a fired abort returns the survivors found so
// far together with ErrAborted.
func (s *Search) Sweep(a uint32, abort <-chan struct{}) ([]sieve.Point, error) {
	it, err := sieve.NewIterator(s.maxb, s.maxp, a)
	if err != nil {
		return nil, err
	}
	var (
		hits     []sieve.Point
		attempts int64
		lastb    uint32
	)
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		if p.B != lastb {
			lastb = p.B
			select {
			case <-abort:
				s.meter.Mark(attempts)
				return hits, ErrAborted
			default:
			}
		}
		attempts++
		if attempts%(1<<15) == 0 {
			s.meter.Mark(attempts)
			attempts = 0
		}
		if s.sieve(p) {
			hits = append(hits, p)
		}
	}
	s.meter.Mark(attempts)
	return hits, nil
}

// sieve reports whether p survives every modulus, short-circuiting on the
// first table whose residue set cannot contain a^x + b^y.
func (s *Search) sieve(p sieve.Point) bool {
	for _, t := range s.tables {
		sum := uint64(t.Get(p.A, p.X)) + uint64(t.Get(p.B, p.Y))
		if !t.Exists(uint32(sum % uint64(t.Mod()))) {
			return false
		}
	}
	return true
}

// Result is the outcome of one single-a partition.
type Result struct {
	A    uint32
	Hits []sieve.Point
}

// Run sweeps the partitions a = from..to across threads goroutines, each
// owning its own iterator cursor and sharing the read-only tables. Results
// arrive on found in completion order; ordering across partitions carries
// no meaning. Run blocks until every dispatched partition has finished or
// the abort channel fires; in-flight partitions are then abandoned at
// their next base advance.
func (s *Search) Run(threads int, from, to uint32, abort <-chan struct{}, found chan<- Result) error {
	if from < 1 || to > s.maxb || from > to {
		return fmt.Errorf("search: partition range [%d, %d] outside [1, %d]", from, to, s.maxb)
	}
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	work := make(chan uint32)
	var pend sync.WaitGroup
	for i := 0; i < threads; i++ {
		pend.Add(1)
		go func(id int) {
			defer pend.Done()
			logger := s.log.New("worker", id)
			for a := range work {
				hits, err := s.Sweep(a, abort)
				if err != nil {
					logger.Debug("Partition sweep aborted", "a", a)
					return
				}
				logger.Trace("Partition swept", "a", a, "hits", len(hits))
				select {
				case found <- Result{A: a, Hits: hits}:
				case <-abort:
					return
				}
			}
		}(i)
	}

dispatch:
	for a := from; a <= to; a++ {
		select {
		case work <- a:
		case <-abort:
			break dispatch
		}
	}
	close(work)
	pend.Wait()
	return nil
}
