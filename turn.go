package main

// Turn order is the player insertion order, fixed for the life of the room.
// The cursor functions walk that order circularly, skipping eliminated
// players (diceCount == 0). All of them require at least one active player
// and treat a full wrap without finding one as a structural defect.

// nextActive returns the index of the first active player strictly after i,
// wrapping around. With a single active player the cursor lands back on it.
func nextActive(players []*player, i int) int {
	for step := 1; step <= len(players); step++ {
		j := (i + step) % len(players)
		if players[j].dice > 0 {
			return j
		}
	}
	panic("turn cursor: no active player in room")
}

// prevActive is the mirror of nextActive, used to find the bidder being
// challenged.
func prevActive(players []*player, i int) int {
	for step := 1; step <= len(players); step++ {
		j := (i - step + len(players)) % len(players)
		if players[j].dice > 0 {
			return j
		}
	}
	panic("turn cursor: no active player in room")
}

// firstActiveFrom returns i itself when players[i] is active, otherwise the
// next active index after it. Used to re-anchor the turn after a removal.
func firstActiveFrom(players []*player, i int) int {
	if i >= 0 && i < len(players) && players[i].dice > 0 {
		return i
	}
	if i >= len(players) {
		i = len(players) - 1
	}
	return nextActive(players, i)
}
