// Package sieve implements the modular sieve used to reject candidate
// quadruples (a, x, b, y) of the generalized Fermat relation a^x + b^y = c^z
// before any exact arithmetic is attempted. For a fixed modulus m the sum
// a^x + b^y can only equal some c^z if their residues agree mod m, so a
// precomputed table of every c^z residue gives a cheap necessary-condition
// test. Survival of every modulus is necessary but not sufficient: a
// surviving quadruple still needs exact big-integer verification before it
// can be called a counterexample.
package sieve

// ModPow returns base^exponent mod modulus by binary exponentiation,
// O(log exponent) modular multiplications. The base is reduced before the
// first multiplication, so with a 32-bit modulus the running product never
// leaves 64 bits. ModPow(b, 0, m) is 1 mod m and anything mod 1 is 0.
// A zero modulus is a caller bug and panics.
func ModPow(base, exponent uint64, modulus uint32) uint32 {
	if modulus == 0 {
		panic("sieve: modpow with zero modulus")
	}
	m := uint64(modulus)
	base %= m
	result := uint64(1) % m
	for exponent > 0 {
		if exponent&1 == 1 {
			result = result * base % m
		}
		exponent >>= 1
		base = base * base % m
	}
	return uint32(result)
}
