package sieve

import (
	"reflect"
	"testing"
)

// refGCD keeps the reference enumeration independent of the binary GCD.
func refGCD(u, v uint32) uint32 {
	for v != 0 {
		u, v = v, u%v
	}
	return u
}

// refSweep enumerates one fixed-a partition with the pruning rules applied
// independently: b in [1, a] coprime with a, x and y in [3, maxp], y
// innermost.
func refSweep(maxp, a uint32) []Point {
	var pts []Point
	for b := uint32(1); b <= a; b++ {
		if refGCD(a, b) != 1 {
			continue
		}
		for x := uint32(3); x <= maxp; x++ {
			for y := uint32(3); y <= maxp; y++ {
				pts = append(pts, Point{A: a, X: x, B: b, Y: y})
			}
		}
	}
	return pts
}

func collect(it *Iterator) []Point {
	var pts []Point
	for {
		p, ok := it.Next()
		if !ok {
			return pts
		}
		pts = append(pts, p)
	}
}

func TestIteratorMatchesReference(t *testing.T) {
	const maxb, maxp = 5, 5
	for a := uint32(1); a <= maxb; a++ {
		it, err := NewIterator(maxb, maxp, a)
		if err != nil {
			t.Fatal(err)
		}
		got := collect(it)
		if want := refSweep(maxp, a); !reflect.DeepEqual(got, want) {
			t.Errorf("a=%d: sweep produced %d points\n got %v\nwant %v", a, len(got), got, want)
		}
	}
}

func TestIteratorPruning(t *testing.T) {
	const maxb, maxp = 12, 4
	for a := uint32(1); a <= maxb; a++ {
		it, err := NewIterator(maxb, maxp, a)
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[Point]bool)
		for {
			p, ok := it.Next()
			if !ok {
				break
			}
			if p.B > p.A {
				t.Fatalf("a=%d: produced symmetric duplicate %+v", a, p)
			}
			if refGCD(p.A, p.B) != 1 {
				t.Fatalf("a=%d: produced non-coprime pair %+v", a, p)
			}
			if seen[p] {
				t.Fatalf("a=%d: produced duplicate point %+v", a, p)
			}
			seen[p] = true
		}
	}
}

func TestIteratorExhaustionIsSticky(t *testing.T) {
	it, err := NewIterator(2, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := collect(it); len(got) != 1 {
		t.Fatalf("a=1 maxp=3 sweep yielded %d points, want 1", len(got))
	}
	if !it.Done() {
		t.Error("Done() = false after exhaustion")
	}
	for i := 0; i < 3; i++ {
		if p, ok := it.Next(); ok || p != (Point{}) {
			t.Fatalf("Next() after exhaustion = (%+v, %v), want (zero, false)", p, ok)
		}
	}
}

func TestFullIteratorCoversAllPartitions(t *testing.T) {
	const maxb, maxp = 6, 4
	full, err := NewFullIterator(maxb, maxp)
	if err != nil {
		t.Fatal(err)
	}
	var want []Point
	for a := uint32(1); a <= maxb; a++ {
		want = append(want, refSweep(maxp, a)...)
	}
	if got := collect(full); !reflect.DeepEqual(got, want) {
		t.Errorf("full sweep mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestFullIteratorResume(t *testing.T) {
	const maxb, maxp = 5, 4
	full, err := NewFullIterator(maxb, maxp)
	if err != nil {
		t.Fatal(err)
	}
	all := collect(full)
	for _, k := range []int{0, 1, len(all) / 2, len(all) - 2, len(all) - 1} {
		it, err := NewFullIteratorAt(maxb, maxp, all[k])
		if err != nil {
			t.Fatalf("resume at %+v: %v", all[k], err)
		}
		got, want := collect(it), all[k+1:]
		if len(got) != len(want) || (len(want) > 0 && !reflect.DeepEqual(got, want)) {
			t.Errorf("resume at index %d yielded %d points, want %d", k, len(got), len(want))
		}
	}
}

func TestIteratorNextN(t *testing.T) {
	const maxb, maxp = 4, 4
	ref, err := NewFullIterator(maxb, maxp)
	if err != nil {
		t.Fatal(err)
	}
	all := collect(ref)

	it, err := NewFullIterator(maxb, maxp)
	if err != nil {
		t.Fatal(err)
	}
	var batched []Point
	for {
		batch := it.NextN(7)
		batched = append(batched, batch...)
		if len(batch) < 7 {
			break
		}
	}
	if !reflect.DeepEqual(batched, all) {
		t.Errorf("batched enumeration yielded %d points, want %d", len(batched), len(all))
	}
	// Over-advancing an exhausted cursor signals exhaustion, never faults.
	if extra := it.NextN(10); len(extra) != 0 {
		t.Errorf("NextN after exhaustion yielded %d points, want 0", len(extra))
	}
}

func TestIteratorConstructionErrors(t *testing.T) {
	if _, err := NewIterator(0, 4, 1); err == nil {
		t.Error("zero maxb accepted")
	}
	if _, err := NewIterator(4, 2, 1); err == nil {
		t.Error("maxp=2 accepted")
	}
	if _, err := NewIterator(4, 4, 0); err == nil {
		t.Error("a=0 accepted")
	}
	if _, err := NewIterator(4, 4, 5); err == nil {
		t.Error("a beyond maxb accepted")
	}
	if _, err := NewFullIterator(0, 4); err == nil {
		t.Error("full iterator with zero maxb accepted")
	}
	badStarts := []Point{
		{A: 0, X: 3, B: 1, Y: 3},
		{A: 2, X: 3, B: 3, Y: 3},  // b > a
		{A: 4, X: 3, B: 2, Y: 3},  // gcd(a, b) > 1
		{A: 2, X: 2, B: 1, Y: 3},  // x below range
		{A: 2, X: 3, B: 1, Y: 9},  // y beyond maxp
	}
	for _, s := range badStarts {
		if _, err := NewFullIteratorAt(4, 4, s); err == nil {
			t.Errorf("bad start %+v accepted", s)
		}
	}
}
