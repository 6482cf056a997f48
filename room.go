package main

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"
)

const (
	statusWaiting  = "waiting"
	statusLaunched = "launched"

	startingDice = 5
)

// palette holds the five player colors, assigned lowest-index-first at join
// time. A sixth player would get no color; rooms are five players at most
// and nothing below checks for overflow.
var palette = [5]string{"blue", "green", "orange", "red", "purple"}

// player is one seat in a room, keyed by the connection that joined it.
// Insertion order into Room.players defines the turn order and never
// changes while the player stays connected. dice == 0 means eliminated;
// the record is kept for spectating until the connection drops.
type player struct {
	sid    string
	name   string
	color  string
	dice   int
	roll   []int
	host   bool
	ready  bool
	client *Client
}

type clientEvent struct {
	client *Client
	msg    ClientMessage
}

// Room owns one game's full state. All mutation happens in handle* methods
// under mu; the run loop feeds them one inbound event at a time, so a room
// never interleaves two events while rooms stay independent of each other.
type Room struct {
	code string
	dir  *Directory
	cfg  *Config

	register chan *Client
	unreg    chan *Client
	events   chan clientEvent
	done     chan struct{}

	mu        sync.RWMutex
	clients   map[*Client]bool
	players   []*player
	status    string
	bet       bet
	turn      int
	final     bool
	destroyed bool
	rng       *mathrand.Rand

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string, dir *Directory, cfg *Config) *Room {
	now := time.Now()
	return &Room{
		code:       code,
		dir:        dir,
		cfg:        cfg,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		events:     make(chan clientEvent, 16),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		status:     statusWaiting,
		rng:        newRoomRand(),
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) run() {
	for {
		select {
		case c := <-r.register:
			r.handleRegister(c)
		case c := <-r.unreg:
			r.handleDisconnect(c)
		case ev := <-r.events:
			switch ev.msg.Type {
			case "join":
				r.handleJoin(ev.client, ev.msg)
			case "launch":
				r.handleLaunch(ev.client)
			case "ready":
				r.handleReady(ev.client)
			case "play":
				r.handlePlay(ev.client, ev.msg)
			default:
				// ignore unknown types
			}
		case <-r.done:
			return
		}
	}
}

// sendTo delivers one message to one client, evicting it if its buffer is
// full. Evicted connections drop out of r.clients but their player records
// keep stale pointers, so unknown clients are skipped here rather than at
// every call site. Callers hold r.mu.
func (r *Room) sendTo(c *Client, msg any) {
	if !r.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

// broadcastLocked fans one message out to every attached connection.
func (r *Room) broadcastLocked(msg any) {
	for c := range r.clients {
		r.sendTo(c, msg)
	}
}

func (r *Room) sendErrorLocked(c *Client, text string) {
	r.sendTo(c, ErrorMessage{Type: "error", Error: text})
}

func (r *Room) playerOfLocked(c *Client) (*player, int) {
	for i, p := range r.players {
		if p.sid == c.sid {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) activeCountLocked() int {
	n := 0
	for _, p := range r.players {
		if p.dice > 0 {
			n++
		}
	}
	return n
}

func (r *Room) activeRollsLocked() [][]int {
	rolls := make([][]int, 0, len(r.players))
	for _, p := range r.players {
		if p.dice > 0 {
			rolls = append(rolls, p.roll)
		}
	}
	return rolls
}

// revealLocked maps each active player's sid to their hidden roll, the
// payload attached to challenge resolutions and game ends.
func (r *Room) revealLocked() map[string][]int {
	reveal := make(map[string][]int, len(r.players))
	for _, p := range r.players {
		if p.dice > 0 {
			reveal[p.sid] = p.roll
		}
	}
	return reveal
}

func (r *Room) handleRegister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		close(c.send)
		return
	}

	r.lastActive = time.Now()
	r.clients[c] = true
}

func (r *Room) handleJoin(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}

	r.lastActive = time.Now()

	if msg.Code != "" && !strings.EqualFold(msg.Code, r.code) {
		r.sendErrorLocked(c, "This game does not exist.")
		return
	}
	if r.status != statusWaiting {
		r.sendErrorLocked(c, "The game has already started.")
		return
	}
	if p, _ := r.playerOfLocked(c); p != nil {
		r.sendErrorLocked(c, "You have already joined this game.")
		return
	}

	name := strings.TrimSpace(msg.Name)
	if name == "" {
		r.sendErrorLocked(c, "You cannot use an empty name.")
		return
	}
	for _, p := range r.players {
		if strings.EqualFold(p.name, name) {
			r.sendErrorLocked(c, "That name is already taken.")
			return
		}
	}

	color := ""
	for _, candidate := range palette {
		used := false
		for _, p := range r.players {
			if p.color == candidate {
				used = true
				break
			}
		}
		if !used {
			color = candidate
			break
		}
	}

	joined := &player{
		sid:    c.sid,
		name:   name,
		color:  color,
		dice:   startingDice,
		host:   len(r.players) == 0,
		ready:  true,
		client: c,
	}
	r.players = append(r.players, joined)

	logf(r.cfg, "GAME: Player %q joined %s", name, r.code)

	for cl := range r.clients {
		r.sendTo(cl, JoinMessage{
			Type:       "join",
			SID:        joined.sid,
			Name:       joined.name,
			Color:      joined.color,
			Host:       joined.host,
			YouAreHost: joined.host && cl == c,
		})
	}
}

func (r *Room) handleLaunch(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}

	r.lastActive = time.Now()

	p, _ := r.playerOfLocked(c)
	if p == nil {
		r.sendErrorLocked(c, "You are not in this game.")
		return
	}
	if !p.host {
		r.sendErrorLocked(c, "Only the host can launch the game.")
		return
	}
	if r.status != statusWaiting {
		r.sendErrorLocked(c, "The game has already started.")
		return
	}
	if len(r.players) < r.cfg.minPlayers {
		r.sendErrorLocked(c, fmt.Sprintf("Not enough players yet, the game needs at least %d.", r.cfg.minPlayers))
		return
	}

	r.status = statusLaunched
	r.turn = 0
	r.final = false

	logf(r.cfg, "GAME: Game %s launched with %d players", r.code, len(r.players))

	r.broadcastLocked(LaunchMessage{Type: "launch", Status: statusLaunched})
	r.dealLocked()
}

// dealLocked starts a new round: fresh rolls sized to each player's dice
// count, bet cleared, readiness cleared, and a private roundStart to every
// connection naming the public next player.
func (r *Room) dealLocked() {
	r.bet = bet{}
	next := r.players[r.turn].sid
	for _, p := range r.players {
		p.roll = rollDice(r.rng, p.dice)
		p.ready = false
		if p.client != nil {
			r.sendTo(p.client, RoundStartMessage{
				Type:       "roundStart",
				Dice:       p.roll,
				NextPlayer: next,
			})
		}
	}
}

func (r *Room) handleReady(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}

	r.lastActive = time.Now()

	p, _ := r.playerOfLocked(c)
	if p == nil || r.status != statusLaunched {
		return
	}

	p.ready = true

	// Eliminated players may keep sending ready while spectating; their
	// flag is recorded but never required by the barrier.
	if p.dice == 0 {
		return
	}

	r.broadcastLocked(ReadyMessage{Type: "ready", SID: p.sid})

	for _, q := range r.players {
		if q.dice > 0 && !q.ready {
			return
		}
	}

	r.dealLocked()
	r.broadcastLocked(InfoMessage{Type: "info", Info: "Here we go again!"})
}

func (r *Room) handlePlay(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}

	r.lastActive = time.Now()

	p, idx := r.playerOfLocked(c)
	if p == nil {
		r.sendErrorLocked(c, "You are not in this game.")
		return
	}
	if r.status != statusLaunched {
		r.sendErrorLocked(c, "The game has not started yet.")
		return
	}
	if p.dice == 0 {
		r.sendErrorLocked(c, "You have been eliminated, sit back and watch.")
		return
	}
	if idx != r.turn {
		r.sendErrorLocked(c, "You cannot play in another player's place.")
		return
	}

	switch msg.Action {
	case "raise":
		r.resolveRaiseLocked(c, p, msg)
	case "liar":
		r.resolveLiarLocked(c, p)
	case "equal":
		r.resolveEqualLocked(c, p)
	default:
		r.sendErrorLocked(c, "Unknown action.")
	}
}

func (r *Room) resolveRaiseLocked(c *Client, p *player, msg ClientMessage) {
	face64, faceErr := msg.Face.Int64()
	quantity64, quantityErr := msg.Quantity.Int64()
	if faceErr != nil || quantityErr != nil {
		r.sendErrorLocked(c, "Bid values must be whole numbers.")
		return
	}
	face, quantity := int(face64), int(quantity64)
	if face < 1 || face > 6 {
		r.sendErrorLocked(c, "That is not a valid die face.")
		return
	}

	candidate := normalizeBid(face, quantity)
	if !dominates(candidate, r.bet) {
		r.sendErrorLocked(c, "You cannot raise with a weaker bid.")
		return
	}

	r.bet = candidate
	r.turn = nextActive(r.players, r.turn)
	r.clearReadyLocked()

	r.broadcastLocked(PlayMessage{
		Type:       "play",
		Action:     "raise",
		Face:       r.bet.face,
		Quantity:   r.bet.claimed(),
		NextPlayer: r.players[r.turn].sid,
	})
}

func (r *Room) resolveLiarLocked(c *Client, p *player) {
	if !r.bet.live() {
		r.sendErrorLocked(c, "You are the first player, you have to bid.")
		return
	}

	reveal := r.revealLocked()
	actual := countMatches(r.bet.face, r.activeRollsLocked())
	claimed := r.bet.claimed()

	if actual < claimed {
		// The previous bidder lied.
		if r.final {
			r.endGameLocked(p.sid, reveal)
			return
		}

		prevIdx := prevActive(r.players, r.turn)
		loser := r.players[prevIdx]
		loser.dice--
		r.turn = nextActive(r.players, prevIdx)
		r.clearReadyLocked()

		r.broadcastLocked(PlayMessage{
			Type:         "play",
			Action:       "liar",
			PlayerLosing: loser.sid,
			Dice:         reveal,
			NextPlayer:   r.players[r.turn].sid,
		})

		r.checkFinalTransitionLocked(loser)
		return
	}

	// The bid held up; the challenger loses a die.
	if r.final {
		winner := r.players[prevActive(r.players, r.turn)]
		r.endGameLocked(winner.sid, reveal)
		return
	}

	p.dice--
	r.turn = nextActive(r.players, r.turn)
	r.clearReadyLocked()

	r.broadcastLocked(PlayMessage{
		Type:         "play",
		Action:       "liar",
		PlayerLosing: p.sid,
		Dice:         reveal,
		NextPlayer:   r.players[r.turn].sid,
	})

	r.checkFinalTransitionLocked(p)
}

func (r *Room) resolveEqualLocked(c *Client, p *player) {
	if !r.bet.live() {
		r.sendErrorLocked(c, "You are the first player, you have to bid.")
		return
	}

	reveal := r.revealLocked()
	actual := countMatches(r.bet.face, r.activeRollsLocked())
	claimed := r.bet.claimed()

	if actual == claimed {
		if r.final {
			r.endGameLocked(p.sid, reveal)
			return
		}

		if p.dice < startingDice {
			p.dice++
		}
		// The successful caller opens the next round themselves.
		r.clearReadyLocked()

		r.broadcastLocked(PlayMessage{
			Type:          "play",
			Action:        "equal",
			PlayerWinning: p.sid,
			Dice:          reveal,
			NextPlayer:    p.sid,
		})
		return
	}

	if r.final {
		winner := r.players[prevActive(r.players, r.turn)]
		r.endGameLocked(winner.sid, reveal)
		return
	}

	p.dice--
	r.turn = nextActive(r.players, r.turn)
	r.clearReadyLocked()

	r.broadcastLocked(PlayMessage{
		Type:         "play",
		Action:       "equal",
		PlayerLosing: p.sid,
		Dice:         reveal,
		NextPlayer:   r.players[r.turn].sid,
	})

	r.checkFinalTransitionLocked(p)
}

func (r *Room) clearReadyLocked() {
	for _, p := range r.players {
		p.ready = false
	}
}

// checkFinalTransitionLocked enters the sudden-death phase when the losing
// player just hit zero dice with exactly two actives left: both survivors
// go back to five dice and the next resolved challenge ends the game. The
// flag is one-way; once final is set a loss ends the game before this is
// reached again.
func (r *Room) checkFinalTransitionLocked(loser *player) {
	if loser.dice != 0 || r.activeCountLocked() != 2 {
		return
	}
	for _, p := range r.players {
		if p.dice > 0 {
			p.dice = startingDice
		}
	}
	r.final = true
	logf(r.cfg, "GAME: Game %s entered its final round", r.code)
}

func (r *Room) endGameLocked(winnerSID string, reveal map[string][]int) {
	logf(r.cfg, "GAME: Game %s won by %s", r.code, winnerSID)
	r.broadcastLocked(EndGameMessage{
		Type:   "endGame",
		Winner: winnerSID,
		Dice:   reveal,
	})
	r.destroyLocked()
}

// destroyLocked tears the room down: every connection is closed and the
// directory entry removed, freeing the code for reuse.
func (r *Room) destroyLocked() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	close(r.done)

	for c := range r.clients {
		close(c.send)
		delete(r.clients, c)
	}

	r.dir.remove(r.code)
	logf(r.cfg, "GAME: Game %s destroyed", r.code)
}

// handleDisconnect applies the leave rules in order: empty room, win by
// forfeit, host holding the turn, turn holder, host, plain leave. Exactly
// the first matching rule runs.
func (r *Room) handleDisconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}

	r.lastActive = time.Now()

	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}

	p, idx := r.playerOfLocked(c)
	if p == nil {
		return
	}

	wasHost := p.host
	heldTurn := r.status == statusLaunched && idx == r.turn

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if r.status == statusLaunched && len(r.players) > 0 {
		if idx < r.turn {
			r.turn--
		}
		if r.turn >= len(r.players) {
			r.turn = 0
		}
	}

	logf(r.cfg, "GAME: Player %q left %s", p.name, r.code)

	if len(r.players) == 0 {
		r.destroyLocked()
		return
	}

	if r.status == statusLaunched && r.activeCountLocked() == 1 {
		var winner *player
		for _, q := range r.players {
			if q.dice > 0 {
				winner = q
				break
			}
		}
		if winner.client != nil {
			r.sendTo(winner.client, InfoMessage{
				Type: "info",
				Info: "You won the game, everyone else forfeited. Well played!",
			})
		}
		r.endGameLocked(winner.sid, r.revealLocked())
		return
	}

	leaveInfo := InfoMessage{Type: "info", Info: p.name + " left the game."}

	switch {
	case wasHost && heldTurn:
		newHost := r.players[0]
		newHost.host = true
		r.turn = firstActiveFrom(r.players, r.turn)
		for cl := range r.clients {
			r.sendTo(cl, DisconnectMessage{
				Type:       "disconnect",
				SID:        p.sid,
				NewHost:    newHost.sid,
				YouAreHost: cl.sid == newHost.sid,
				NextPlayer: r.players[r.turn].sid,
			})
			r.sendTo(cl, leaveInfo)
		}

	case heldTurn:
		r.turn = firstActiveFrom(r.players, r.turn)
		for cl := range r.clients {
			r.sendTo(cl, DisconnectMessage{
				Type:       "disconnect",
				SID:        p.sid,
				NextPlayer: r.players[r.turn].sid,
			})
			r.sendTo(cl, leaveInfo)
		}

	case wasHost:
		newHost := r.players[0]
		newHost.host = true
		for cl := range r.clients {
			r.sendTo(cl, DisconnectMessage{
				Type:       "disconnect",
				SID:        p.sid,
				NewHost:    newHost.sid,
				YouAreHost: cl.sid == newHost.sid,
			})
			r.sendTo(cl, leaveInfo)
		}

	default:
		r.broadcastLocked(DisconnectMessage{Type: "disconnect", SID: p.sid})
		r.broadcastLocked(leaveInfo)
	}
}

// Read-only accessors for the HTTP boundary. These take the room lock
// directly instead of going through the mailbox: they never mutate.

func (r *Room) isLaunched() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.status == statusLaunched
}

func (r *Room) nameTaken(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.TrimSpace(name)
	for _, p := range r.players {
		if strings.EqualFold(p.name, name) {
			return true
		}
	}
	return false
}

type seat struct {
	name  string
	color string
}

func (r *Room) roster() []seat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seats := make([]seat, 0, len(r.players))
	for _, p := range r.players {
		seats = append(seats, seat{name: p.name, color: p.color})
	}
	return seats
}

// expire is called by the directory's reaper when the room has been idle
// past the configured session timeout.
func (r *Room) expire(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed || r.lastActive.After(cutoff) {
		return false
	}
	r.destroyLocked()
	return true
}
