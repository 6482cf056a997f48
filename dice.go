package main

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
)

// rollDice returns n independent uniform rolls in 1..6. n == 0 yields an
// empty slice, which is what eliminated players carry between rounds.
func rollDice(rng *mathrand.Rand, n int) []int {
	dice := make([]int, n)
	for i := range dice {
		dice[i] = rng.Intn(6) + 1
	}
	return dice
}

// newRoomRand builds the per-room source. Each room owns its own *Rand so
// rooms never contend on a shared source; tests substitute a fixed seed.
func newRoomRand() *mathrand.Rand {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return mathrand.New(mathrand.NewSource(int64(binary.LittleEndian.Uint64(buf[:]))))
}
