package main

// A bet claims "at least quantity dice showing face exist across all hidden
// rolls". Aces (face 1) are wild: they support every other face's count, so
// an ace bid is worth double. The room stores the normalized (doubled for
// aces) quantity; displays and count comparisons use the face-value form.
type bet struct {
	face     int // 1..6, 0 when no bid is live this round
	quantity int // normalized: doubled when face == 1
}

// live reports whether a bid has been placed this round.
func (b bet) live() bool {
	return b.quantity > 0
}

// claimed returns the quantity in face-value form, the number the bidder
// actually said out loud.
func (b bet) claimed() int {
	if b.face == 1 {
		return b.quantity / 2
	}
	return b.quantity
}

// normalizeBid converts a spoken (face, quantity) pair into its stored form.
func normalizeBid(face, quantity int) bet {
	if face == 1 {
		quantity *= 2
	}
	return bet{face: face, quantity: quantity}
}

// dominates reports whether the candidate bid may replace the current one:
// its normalized quantity must strictly exceed the current normalized
// quantity. The face itself does not rank, so lowering the face while
// raising the effective quantity is allowed.
func dominates(candidate, current bet) bool {
	return candidate.quantity > current.quantity
}

// countMatches counts dice showing face across the given rolls. Aces count
// toward every face in addition to themselves: for face == 1 only the aces
// themselves are counted, for any other face the aces are added on top.
func countMatches(face int, rolls [][]int) int {
	matches := 0
	aces := 0
	for _, roll := range rolls {
		for _, die := range roll {
			if die == face {
				matches++
			}
			if die == 1 {
				aces++
			}
		}
	}
	if face == 1 {
		return aces
	}
	return matches + aces
}
