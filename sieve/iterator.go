package sieve

import (
	"errors"
	"fmt"
)

// Point is one candidate quadruple of the relation a^x + b^y = c^z.
type Point struct {
	A uint32 `json:"a"`
	X uint32 `json:"x"`
	B uint32 `json:"b"`
	Y uint32 `json:"y"`
}

// Iterator enumerates candidate quadruples in a fixed nested order: y cycles
// 3..maxp innermost, then x the same way, then b ascending and skipping any
// value sharing a factor with a, and in the full-space form a outermost.
//
// Points with b > a are never produced: the relation is symmetric in its two
// summands, so sweeping both (a, b) and (b, a) would duplicate work. Points
// with gcd(a, b) > 1 are never produced either, since a common factor could
// be divided out of the relation, reducing it to a smaller known case.
//
// An Iterator is a single-use cursor. It must not be shared between
// goroutines; workers sweeping different a values each own their own.
type Iterator struct {
	maxb, maxp uint32
	full       bool // sweep every a in [1, maxb] instead of one fixed a
	a, x, b, y uint32
	done       bool
}

// NewIterator returns a cursor over every quadruple with the given fixed a,
// positioned before the first point.
func NewIterator(maxb, maxp, a uint32) (*Iterator, error) {
	if err := checkBounds(maxb, maxp); err != nil {
		return nil, err
	}
	if a < 1 || a > maxb {
		return nil, fmt.Errorf("sieve: iterator a=%d outside [1, %d]", a, maxb)
	}
	return &Iterator{maxb: maxb, maxp: maxp, a: a, b: 1, x: 3, y: 2}, nil
}

// NewFullIterator returns a cursor over the entire space, a ascending from 1
// to maxb, positioned before the first point.
func NewFullIterator(maxb, maxp uint32) (*Iterator, error) {
	if err := checkBounds(maxb, maxp); err != nil {
		return nil, err
	}
	return &Iterator{maxb: maxb, maxp: maxp, full: true, a: 1, b: 1, x: 3, y: 2}, nil
}

// NewFullIteratorAt returns a full-space cursor positioned on start, so the
// first advance yields the point after it. start must be a point the full
// sweep would itself produce; this is the resume form used to pick up a
// sweep from a recorded position.
func NewFullIteratorAt(maxb, maxp uint32, start Point) (*Iterator, error) {
	if err := checkBounds(maxb, maxp); err != nil {
		return nil, err
	}
	if start.A < 1 || start.A > maxb || start.B < 1 || start.B > start.A ||
		start.X < 3 || start.X > maxp || start.Y < 3 || start.Y > maxp ||
		GCD(uint64(start.A), uint64(start.B)) != 1 {
		return nil, fmt.Errorf("sieve: start point %+v unreachable with maxb=%d maxp=%d", start, maxb, maxp)
	}
	return &Iterator{maxb: maxb, maxp: maxp, full: true, a: start.A, x: start.X, b: start.B, y: start.Y}, nil
}

func checkBounds(maxb, maxp uint32) error {
	if maxb == 0 {
		return errors.New("sieve: max base must be positive")
	}
	if maxp <= 2 {
		return fmt.Errorf("sieve: max power must exceed 2, got %d", maxp)
	}
	return nil
}

// Next advances the cursor and returns the next point. ok is false once the
// sweep is exhausted; the returned point is then invalid, and every later
// call is a no-op that keeps reporting exhaustion.
func (it *Iterator) Next() (Point, bool) {
	if it.done {
		return Point{}, false
	}
	it.y++
	if it.y > it.maxp {
		it.y = 3
		it.x++
	}
	if it.x > it.maxp {
		it.x = 3
		if !it.advanceBase() {
			it.done = true
			return Point{}, false
		}
	}
	return Point{A: it.a, X: it.x, B: it.b, Y: it.y}, true
}

// advanceBase moves b to the next value coprime with a, rolling over to the
// next a in the full-space sweep. It reports false on exhaustion.
func (it *Iterator) advanceBase() bool {
	it.b++
	for it.b <= it.a && GCD(uint64(it.a), uint64(it.b)) != 1 {
		it.b++
	}
	if it.b <= it.a {
		return true
	}
	if !it.full || it.a >= it.maxb {
		return false
	}
	it.a++
	it.b = 1 // coprime with everything
	return true
}

// NextN advances up to n points, returning fewer at exhaustion.
func (it *Iterator) NextN(n int) []Point {
	pts := make([]Point, 0, n)
	for len(pts) < n {
		p, ok := it.Next()
		if !ok {
			break
		}
		pts = append(pts, p)
	}
	return pts
}

// Done reports whether the sweep is exhausted.
func (it *Iterator) Done() bool { return it.done }
