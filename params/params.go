// Package params collects the default knobs of a Beal sieve search.
package params

// DefaultModuli are the ten largest primes below 2^32. Large prime moduli
// spread the c^z residues thin, so each table rejects the largest possible
// share of candidate quadruples.
var DefaultModuli = []uint32{
	4294967291, 4294967279, 4294967231, 4294967197, 4294967189,
	4294967161, 4294967143, 4294967111, 4294967087, 4294967029,
}

const (
	// DefaultMaxBase bounds the swept bases a, b and the implied c.
	DefaultMaxBase uint32 = 1000

	// DefaultMaxPow bounds the swept exponents x, y and the implied z.
	// Exponents below 3 are excluded by the conjecture itself.
	DefaultMaxPow uint32 = 1000

	// DefaultFrom is the first a partition handed out. Partitions below it
	// fall inside ranges already covered by earlier published searches.
	DefaultFrom uint32 = 280

	// DefaultManagerAddr is where workers look for a partition manager.
	DefaultManagerAddr = "localhost:8000"
)
