package sieve

import (
	"errors"
	"fmt"

	gopsutil "github.com/shirou/gopsutil/mem"
)

// memAllowance returns how much memory a single residue table may claim.
// Replaced in tests.
var memAllowance = func() (uint64, error) {
	m, err := gopsutil.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return m.Total / 3, nil
}

// Table holds c^z mod m for every base c in [1, maxb] and exponent z in
// [3, maxp], together with a residue-existence index over [0, m). Residues
// of a 32-bit modulus can never reach the modulus, so a bitset sized to m
// answers existence for the whole 32-bit domain: values at or above m are
// false by definition. A table is built once and immutable afterwards, so
// any number of goroutines may query it without synchronization.
type Table struct {
	maxb, maxp uint32
	mod        uint32
	vals       []uint32 // maxb rows of maxp-2 residues
	exists     *bitset
}

// NewTable precomputes the residue table for one modulus. Construction is
// O(maxb * maxp) modular exponentiations. Bad bounds, a zero modulus or a
// footprint beyond the memory allowance are construction errors; a table is
// never returned in a partial state.
func NewTable(maxb, maxp, modulus uint32) (*Table, error) {
	if maxb == 0 {
		return nil, errors.New("sieve: max base must be positive")
	}
	if maxp <= 2 {
		return nil, fmt.Errorf("sieve: max power must exceed 2, got %d", maxp)
	}
	if modulus == 0 {
		return nil, errors.New("sieve: modulus must be positive")
	}
	cols := uint64(maxp - 2)
	need := uint64(maxb)*cols*4 + uint64(modulus)/8
	if allowance, err := memAllowance(); err == nil && need > allowance {
		return nil, fmt.Errorf("sieve: table for modulus %d needs %d MiB, allowance is %d MiB",
			modulus, need>>20, allowance>>20)
	}

	t := &Table{
		maxb:   maxb,
		maxp:   maxp,
		mod:    modulus,
		vals:   make([]uint32, uint64(maxb)*cols),
		exists: newBitset(uint64(modulus)),
	}
	for c := uint32(1); c <= maxb; c++ {
		row := uint64(c-1) * cols
		for z := uint32(3); z <= maxp; z++ {
			v := ModPow(uint64(c), uint64(z), modulus)
			t.vals[row+uint64(z-3)] = v
			t.exists.set(uint64(v))
		}
	}
	return t, nil
}

// Get returns c^z mod m. Both indices must lie inside the constructed
// ranges; anything else is a caller bug and panics.
func (t *Table) Get(c, z uint32) uint32 {
	if c < 1 || c > t.maxb || z < 3 || z > t.maxp {
		panic(fmt.Sprintf("sieve: table query (%d, %d) outside [1,%d]x[3,%d]", c, z, t.maxb, t.maxp))
	}
	return t.vals[uint64(c-1)*uint64(t.maxp-2)+uint64(z-3)]
}

// Exists reports whether some (c, z) in the constructed range produced the
// residue v. It accepts any 32-bit value and never fails.
func (t *Table) Exists(v uint32) bool {
	if uint64(v) >= t.exists.len() {
		return false
	}
	return t.exists.has(uint64(v))
}

// Mod returns the table's modulus.
func (t *Table) Mod() uint32 { return t.mod }

// MaxBase returns the largest base the table covers.
func (t *Table) MaxBase() uint32 { return t.maxb }

// MaxPow returns the largest exponent the table covers.
func (t *Table) MaxPow() uint32 { return t.maxp }
