package sieve

// bitset is a dense bit array backed by 64-bit words.
type bitset struct {
	words []uint64
	n     uint64
}

func newBitset(n uint64) *bitset {
	return &bitset{words: make([]uint64, (n+63)/64), n: n}
}

func (b *bitset) set(i uint64) { b.words[i>>6] |= 1 << (i & 63) }

func (b *bitset) has(i uint64) bool { return b.words[i>>6]>>(i&63)&1 == 1 }

func (b *bitset) len() uint64 { return b.n }
