package main

import (
	"encoding/json"
	"fmt"
	mathrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{minPlayers: 3}
}

func newTestClient(sid string) *Client {
	return &Client{send: make(chan any, 64), sid: sid}
}

// newTestRoom creates a room with a fixed seed and joins one client per
// name, calling the handlers directly instead of going through the
// websocket pumps.
func newTestRoom(t *testing.T, names ...string) (*Directory, *Room, []*Client) {
	t.Helper()

	dir := newDirectory(testConfig())
	room := dir.create()
	room.rng = mathrand.New(mathrand.NewSource(1))

	clients := make([]*Client, len(names))
	for i, name := range names {
		clients[i] = newTestClient(fmt.Sprintf("sid-%d", i))
		room.handleRegister(clients[i])
		room.handleJoin(clients[i], ClientMessage{Type: "join", Code: room.code, Name: name})
	}
	return dir, room, clients
}

func launchedRoom(t *testing.T, names ...string) (*Directory, *Room, []*Client) {
	t.Helper()

	dir, room, clients := newTestRoom(t, names...)
	room.handleLaunch(clients[0])
	for _, c := range clients {
		drain(c)
	}
	return dir, room, clients
}

func drain(c *Client) []any {
	var msgs []any
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return msgs
			}
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func msgsOf[T any](msgs []any) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func raiseMsg(face, quantity string) ClientMessage {
	return ClientMessage{
		Type:     "play",
		Action:   "raise",
		Face:     json.Number(face),
		Quantity: json.Number(quantity),
	}
}

func TestJoinAssignsColorsAndHost(t *testing.T) {
	_, room, clients := newTestRoom(t, "alice", "bob", "carol")

	assert.Equal(t, []string{"blue", "green", "orange"}, []string{
		room.players[0].color,
		room.players[1].color,
		room.players[2].color,
	})
	assert.True(t, room.players[0].host)
	assert.False(t, room.players[1].host)
	assert.False(t, room.players[2].host)

	joins := msgsOf[JoinMessage](drain(clients[2]))
	require.Len(t, joins, 1)
	assert.Equal(t, "carol", joins[0].Name)
	assert.False(t, joins[0].YouAreHost)
}

func TestJoinRejectsDuplicateAndEmptyNames(t *testing.T) {
	_, room, _ := newTestRoom(t, "alice")

	dupe := newTestClient("sid-dupe")
	room.handleRegister(dupe)
	room.handleJoin(dupe, ClientMessage{Type: "join", Name: "  ALICE "})

	errors := msgsOf[ErrorMessage](drain(dupe))
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Error, "already taken")
	assert.Len(t, room.players, 1)

	empty := newTestClient("sid-empty")
	room.handleRegister(empty)
	room.handleJoin(empty, ClientMessage{Type: "join", Name: "   "})

	errors = msgsOf[ErrorMessage](drain(empty))
	require.Len(t, errors, 1)
	assert.Len(t, room.players, 1)
}

func TestJoinRejectedAfterLaunch(t *testing.T) {
	_, room, _ := launchedRoom(t, "alice", "bob", "carol")

	late := newTestClient("sid-late")
	room.handleRegister(late)
	room.handleJoin(late, ClientMessage{Type: "join", Name: "dave"})

	errors := msgsOf[ErrorMessage](drain(late))
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Error, "already started")
	assert.Len(t, room.players, 3)
}

func TestLaunchDealsFreshRound(t *testing.T) {
	_, room, clients := newTestRoom(t, "alice", "bob", "carol")
	for _, c := range clients {
		drain(c)
	}

	room.handleLaunch(clients[0])

	assert.Equal(t, statusLaunched, room.status)
	assert.Equal(t, 0, room.turn)
	assert.False(t, room.final)
	assert.False(t, room.bet.live())

	for i, c := range clients {
		msgs := drain(c)
		require.Len(t, msgsOf[LaunchMessage](msgs), 1)

		starts := msgsOf[RoundStartMessage](msgs)
		require.Len(t, starts, 1)
		assert.Equal(t, room.players[i].roll, starts[0].Dice)
		assert.Len(t, starts[0].Dice, 5)
		assert.Equal(t, "sid-0", starts[0].NextPlayer)
	}
}

func TestLaunchRequiresHostAndEnoughPlayers(t *testing.T) {
	_, room, clients := newTestRoom(t, "alice", "bob", "carol")

	room.handleLaunch(clients[1])
	errors := msgsOf[ErrorMessage](drain(clients[1]))
	require.Len(t, errors, 1)
	assert.Equal(t, statusWaiting, room.status)

	_, small, smallClients := newTestRoom(t, "alice", "bob")
	small.handleLaunch(smallClients[0])
	errors = msgsOf[ErrorMessage](drain(smallClients[0]))
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Error, "at least 3")
	assert.Equal(t, statusWaiting, small.status)
}

func TestRaiseOutOfTurnRejected(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	room.handlePlay(clients[1], raiseMsg("4", "3"))

	errors := msgsOf[ErrorMessage](drain(clients[1]))
	require.Len(t, errors, 1)
	assert.False(t, room.bet.live())
	assert.Equal(t, 0, room.turn)
}

func TestRaiseValidation(t *testing.T) {
	tests := []struct {
		name     string
		face     string
		quantity string
	}{
		{"face too high", "7", "3"},
		{"face zero", "0", "3"},
		{"fractional face", "2.5", "3"},
		{"fractional quantity", "4", "2.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, room, clients := launchedRoom(t, "alice", "bob", "carol")

			room.handlePlay(clients[0], raiseMsg(tc.face, tc.quantity))

			errors := msgsOf[ErrorMessage](drain(clients[0]))
			require.Len(t, errors, 1)
			assert.False(t, room.bet.live())
			assert.Equal(t, 0, room.turn)
		})
	}
}

func TestRaiseAcceptedAdvancesTurn(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	room.handlePlay(clients[0], raiseMsg("4", "3"))

	assert.Equal(t, bet{face: 4, quantity: 3}, room.bet)
	assert.Equal(t, 1, room.turn)
	for _, p := range room.players {
		assert.False(t, p.ready)
	}

	plays := msgsOf[PlayMessage](drain(clients[2]))
	require.Len(t, plays, 1)
	assert.Equal(t, "raise", plays[0].Action)
	assert.Equal(t, 4, plays[0].Face)
	assert.Equal(t, 3, plays[0].Quantity)
	assert.Equal(t, "sid-1", plays[0].NextPlayer)
}

func TestRaiseAcesNormalized(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	drain(clients[1])
	room.handlePlay(clients[1], raiseMsg("1", "2"))

	// Two aces are stored as four but displayed as two.
	assert.Equal(t, bet{face: 1, quantity: 4}, room.bet)

	plays := msgsOf[PlayMessage](drain(clients[1]))
	require.Len(t, plays, 1)
	assert.Equal(t, 1, plays[0].Face)
	assert.Equal(t, 2, plays[0].Quantity)

	// A follow-up must beat the normalized four.
	room.handlePlay(clients[2], raiseMsg("6", "4"))
	errors := msgsOf[ErrorMessage](drain(clients[2]))
	require.Len(t, errors, 1)
	assert.Equal(t, bet{face: 1, quantity: 4}, room.bet)

	room.handlePlay(clients[2], raiseMsg("6", "5"))
	assert.Equal(t, bet{face: 6, quantity: 5}, room.bet)
}

func TestChallengeRequiresLiveBid(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	for _, action := range []string{"liar", "equal"} {
		room.handlePlay(clients[0], ClientMessage{Type: "play", Action: action})

		errors := msgsOf[ErrorMessage](drain(clients[0]))
		require.Len(t, errors, 1)
		assert.Contains(t, errors[0].Error, "have to bid")
	}
}

func TestEliminatedCannotAct(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	room.mu.Lock()
	room.players[2].dice = 0
	room.players[2].roll = nil
	room.mu.Unlock()

	room.handlePlay(clients[2], raiseMsg("4", "3"))

	errors := msgsOf[ErrorMessage](drain(clients[2]))
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Error, "eliminated")
}

// setRolls overwrites the hidden rolls so challenge outcomes are exact.
func setRolls(room *Room, rolls ...[]int) {
	room.mu.Lock()
	defer room.mu.Unlock()

	for i, roll := range rolls {
		room.players[i].roll = roll
		room.players[i].dice = len(roll)
	}
}

func TestChallengeLiarHitsPreviousBidder(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	// Two fours in play, no aces: a bid of three fours is a lie.
	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
		[]int{2, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	drain(clients[1])
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "liar"})

	assert.Equal(t, 4, room.players[0].dice, "previous bidder loses the die")
	assert.Equal(t, 5, room.players[1].dice, "challenger keeps theirs")
	assert.Equal(t, 1, room.turn, "turn passes to the player after the loser")

	plays := msgsOf[PlayMessage](drain(clients[2]))
	require.Len(t, plays, 2)
	resolution := plays[1]
	assert.Equal(t, "liar", resolution.Action)
	assert.Equal(t, "sid-0", resolution.PlayerLosing)
	assert.Len(t, resolution.Dice, 3)
	assert.Equal(t, []int{4, 2, 2, 3, 3}, resolution.Dice["sid-0"])
}

func TestChallengeLiarBackfires(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	// Three fours plus an ace: the bid of three fours holds.
	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
		[]int{4, 1, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "liar"})

	assert.Equal(t, 5, room.players[0].dice)
	assert.Equal(t, 4, room.players[1].dice, "challenger loses the die")
	assert.Equal(t, 2, room.turn, "turn passes to the player after the challenger")
}

func TestChallengeExactRewardsChallenger(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	// Exactly three fours across all rolls.
	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
		[]int{4, 2, 3, 3, 5},
	)
	room.mu.Lock()
	room.players[1].dice = 4
	room.players[1].roll = []int{4, 3, 3, 5}
	room.mu.Unlock()

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "equal"})

	assert.Equal(t, 5, room.players[1].dice, "challenger regains a die")
	assert.Equal(t, 1, room.turn, "successful caller opens the next round")

	plays := msgsOf[PlayMessage](drain(clients[0]))
	require.Len(t, plays, 2)
	assert.Equal(t, "equal", plays[1].Action)
	assert.Equal(t, "sid-1", plays[1].PlayerWinning)
	assert.Equal(t, "sid-1", plays[1].NextPlayer)
}

func TestChallengeExactCapsAtFive(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
		[]int{4, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "equal"})

	assert.Equal(t, 5, room.players[1].dice)
}

func TestChallengeExactWrongCostsDie(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{2, 3, 3, 5, 6},
		[]int{2, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "equal"})

	assert.Equal(t, 4, room.players[1].dice)
	assert.Equal(t, 2, room.turn)
}

func TestFinalRoundTransition(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	// alice is down to one die and about to lose it on a bad bid.
	setRolls(room,
		[]int{2},
		[]int{4, 3, 3, 5, 6},
		[]int{2, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "liar"})

	assert.Equal(t, 0, room.players[0].dice, "loser stays eliminated")
	assert.Equal(t, 5, room.players[1].dice, "survivors reset to five")
	assert.Equal(t, 5, room.players[2].dice, "survivors reset to five")
	assert.True(t, room.final)
}

func TestFinalRoundEndsGameOnNextLoss(t *testing.T) {
	dir, room, clients := launchedRoom(t, "alice", "bob", "carol")

	setRolls(room,
		[]int{2},
		[]int{4, 3, 3, 5, 6},
		[]int{2, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "liar"})
	require.True(t, room.final)

	for _, c := range clients {
		drain(c)
	}

	// Sudden death: bob and carol ready up, then a lie ends it all.
	room.handleReady(clients[1])
	room.handleReady(clients[2])

	// An absurd bid cannot hold against ten dice.
	room.handlePlay(clients[1], raiseMsg("6", "20"))
	drain(clients[2])
	room.handlePlay(clients[2], ClientMessage{Type: "play", Action: "liar"})

	ends := msgsOf[EndGameMessage](drain(clients[2]))
	require.Len(t, ends, 1)
	assert.Equal(t, "sid-2", ends[0].Winner)
	assert.NotEmpty(t, ends[0].Dice)

	assert.True(t, room.destroyed)
	assert.Zero(t, dir.count())
}

func TestFinalRoundExactCallWinsOutright(t *testing.T) {
	dir, room, clients := launchedRoom(t, "alice", "bob", "carol")

	room.mu.Lock()
	room.players[0].dice = 0
	room.players[0].roll = nil
	room.final = true
	room.turn = 1
	room.mu.Unlock()

	setRolls(room,
		nil,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
	)

	room.handlePlay(clients[1], raiseMsg("4", "2"))
	room.handlePlay(clients[2], ClientMessage{Type: "play", Action: "equal"})

	ends := msgsOf[EndGameMessage](drain(clients[1]))
	require.Len(t, ends, 1)
	assert.Equal(t, "sid-2", ends[0].Winner)
	assert.Zero(t, dir.count())
}

func TestReadinessBarrier(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "dave", "carol")

	// dave was eliminated in an earlier round and just spectates.
	setRolls(room,
		[]int{4, 2, 2, 3, 3},
		[]int{4, 3, 3, 5, 6},
		nil,
		[]int{2, 2, 3, 3, 5},
	)

	room.handlePlay(clients[0], raiseMsg("4", "3"))
	room.handlePlay(clients[1], ClientMessage{Type: "play", Action: "liar"})
	require.Equal(t, 4, room.players[0].dice)

	for _, c := range clients {
		drain(c)
	}

	room.handleReady(clients[0])
	assert.Empty(t, msgsOf[RoundStartMessage](drain(clients[0])), "barrier holds until everyone is ready")

	room.handleReady(clients[1])
	assert.Empty(t, msgsOf[RoundStartMessage](drain(clients[1])))

	// dave is eliminated; his ready is accepted but not required, and the
	// barrier releases on the last active player's signal.
	room.handleReady(clients[3])

	for i, c := range clients {
		starts := msgsOf[RoundStartMessage](drain(c))
		require.Len(t, starts, 1, "client %d", i)
		assert.Len(t, starts[0].Dice, room.players[i].dice)
	}
	assert.False(t, room.bet.live(), "bet resets with the new deal")
}

func TestEvictedClientSkippedOnDeal(t *testing.T) {
	_, room, clients := launchedRoom(t, "alice", "bob", "carol")

	// Jam bob's buffer so the next broadcast evicts him.
	for i := 0; i < cap(clients[1].send); i++ {
		clients[1].send <- InfoMessage{Type: "info"}
	}

	room.handleReady(clients[0])
	assert.NotContains(t, room.clients, clients[1], "full buffer evicts the connection")

	// bob's seat stays; the next deal must skip his dead connection.
	require.NotPanics(t, func() {
		room.handleReady(clients[1])
		room.handleReady(clients[2])
	})

	starts := msgsOf[RoundStartMessage](drain(clients[0]))
	require.Len(t, starts, 1, "barrier still releases and redeals")
	assert.Len(t, starts[0].Dice, room.players[0].dice)
}
