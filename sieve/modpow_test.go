package sieve

import (
	"math/big"
	"math/rand"
	"testing"
)

// slowModPow is the reference oracle: repeated multiplication mod m.
func slowModPow(base, exponent uint64, modulus uint32) uint32 {
	m := uint64(modulus)
	r := uint64(1) % m
	b := base % m
	for i := uint64(0); i < exponent; i++ {
		r = r * b % m
	}
	return uint32(r)
}

func TestModPowDense(t *testing.T) {
	for base := uint64(0); base < 50; base++ {
		for exp := uint64(0); exp < 50; exp++ {
			for mod := uint32(1); mod < 50; mod++ {
				if got, want := ModPow(base, exp, mod), slowModPow(base, exp, mod); got != want {
					t.Fatalf("ModPow(%d, %d, %d) = %d, want %d", base, exp, mod, got, want)
				}
			}
		}
	}
}

func TestModPowEdges(t *testing.T) {
	if got := ModPow(10, 0, 7); got != 1 {
		t.Errorf("ModPow(10, 0, 7) = %d, want 1", got)
	}
	if got := ModPow(0, 0, 7); got != 1 {
		t.Errorf("ModPow(0, 0, 7) = %d, want 1", got)
	}
	if got := ModPow(12345, 678, 1); got != 0 {
		t.Errorf("ModPow(12345, 678, 1) = %d, want 0", got)
	}
	if got := ModPow(10, 0, 1); got != 0 {
		t.Errorf("ModPow(10, 0, 1) = %d, want 0", got)
	}
	// A base far above the modulus must be reduced before the first
	// squaring or the running product would overflow.
	if got, want := ModPow(1<<40, 3, 97), slowModPow(1<<40, 3, 97); got != want {
		t.Errorf("ModPow(2^40, 3, 97) = %d, want %d", got, want)
	}
	if got, want := ModPow(^uint64(0), 2, 4294967291), bigModPow(^uint64(0), 2, 4294967291); got != want {
		t.Errorf("ModPow(2^64-1, 2, 4294967291) = %d, want %d", got, want)
	}
}

func bigModPow(base, exponent uint64, modulus uint32) uint32 {
	v := new(big.Int).Exp(
		new(big.Int).SetUint64(base),
		new(big.Int).SetUint64(exponent),
		new(big.Int).SetUint64(uint64(modulus)),
	)
	return uint32(v.Uint64())
}

func TestModPowRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		base := rnd.Uint64()
		exp := rnd.Uint64()
		mod := rnd.Uint32()
		if mod == 0 {
			mod = 1
		}
		if got, want := ModPow(base, exp, mod), bigModPow(base, exp, mod); got != want {
			t.Fatalf("ModPow(%d, %d, %d) = %d, want %d", base, exp, mod, got, want)
		}
	}
}

func TestModPowZeroModulusPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ModPow with zero modulus did not panic")
		}
	}()
	ModPow(2, 3, 0)
}
