package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountMatches(t *testing.T) {
	rolls := [][]int{
		{4, 4, 1, 2, 6},
		{3, 1, 5},
		{4, 2},
	}

	tests := []struct {
		name string
		face int
		want int
	}{
		{"aces count only themselves", 1, 2},
		{"aces support other faces", 4, 5},
		{"face with no matches still gets aces", 6, 3},
		{"no matches at all", 5, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, countMatches(tc.face, rolls))
		})
	}
}

func TestCountMatchesIdempotentAndBounded(t *testing.T) {
	rolls := [][]int{{1, 1, 3}, {2, 1}}

	first := countMatches(1, rolls)
	second := countMatches(1, rolls)

	assert.Equal(t, first, second)
	assert.LessOrEqual(t, first, 5)
}

func TestCountMatchesEmpty(t *testing.T) {
	assert.Zero(t, countMatches(4, nil))
}

func TestNormalizeBid(t *testing.T) {
	plain := normalizeBid(4, 3)
	assert.Equal(t, bet{face: 4, quantity: 3}, plain)
	assert.Equal(t, 3, plain.claimed())

	aces := normalizeBid(1, 3)
	assert.Equal(t, bet{face: 1, quantity: 6}, aces)
	assert.Equal(t, 3, aces.claimed())
}

func TestDominates(t *testing.T) {
	tests := []struct {
		name      string
		candidate bet
		current   bet
		want      bool
	}{
		{"strictly higher quantity", normalizeBid(4, 4), normalizeBid(4, 3), true},
		{"equal quantity rejected", normalizeBid(5, 3), normalizeBid(4, 3), false},
		{"lower quantity rejected", normalizeBid(6, 2), normalizeBid(4, 3), false},
		{"first bid over empty bet", normalizeBid(2, 1), bet{}, true},
		{"ace bid counts double", normalizeBid(1, 2), normalizeBid(4, 3), true},
		{"ace bid still too low", normalizeBid(1, 1), normalizeBid(4, 3), false},
		{"raising over aces needs doubled value", normalizeBid(6, 4), normalizeBid(1, 2), false},
		{"lowering the face is allowed", normalizeBid(2, 4), normalizeBid(6, 3), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dominates(tc.candidate, tc.current))
		})
	}
}

func TestBetLive(t *testing.T) {
	assert.False(t, bet{}.live())
	assert.True(t, normalizeBid(3, 1).live())
}
