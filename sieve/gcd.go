package sieve

// GCD returns the greatest common divisor of u and v using the binary GCD
// algorithm: shifts, subtraction and comparison only, no division. It relies
// on the identities gcd(2a,2b) = 2*gcd(a,b), gcd(2a,b) = gcd(a,b) for odd b
// and gcd(a,b) = gcd(|a-b|, min(a,b)) for odd a, b.
// GCD(0, v) = v, GCD(u, 0) = u and GCD(0, 0) = 0.
func GCD(u, v uint64) uint64 {
	if u == 0 {
		return v
	}
	if v == 0 {
		return u
	}

	// Strip the power of two shared by both operands, then reduce u to odd.
	var shift uint
	for (u|v)&1 == 0 {
		u >>= 1
		v >>= 1
		shift++
	}
	for u&1 == 0 {
		u >>= 1
	}

	for {
		for v&1 == 0 {
			v >>= 1
		}
		// Both odd here; keep the smaller in u so the subtraction below
		// cannot wrap.
		if u > v {
			u, v = v, u
		}
		v -= u
		if v == 0 {
			return u << shift
		}
	}
}
