package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

const codeAlphabet = "0123456789ABCDEF"

// Directory is the process-wide registry of live rooms, keyed by code.
// Rooms self-remove on destruction, so a code becomes reusable the moment
// its room dies.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room
	cfg   *Config
}

func newDirectory(cfg *Config) *Directory {
	dir := &Directory{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
	if cfg.sessionTimeout > 0 {
		go dir.reaperLoop()
	}
	return dir
}

// newCode draws a random code over the 16-symbol alphabet, starting at
// length 1 and growing by one symbol after each collision. Termination is
// probabilistic: 16^L candidates exist at length L, so in practice a couple
// of draws suffice. Callers hold dir.mu.
func (dir *Directory) newCode() string {
	length := 1
	for {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, length)
		for i := range out {
			out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(out)

		if _, exists := dir.rooms[code]; !exists {
			return code
		}
		length++
	}
}

// create registers a fresh room under a newly generated code and starts
// its event loop.
func (dir *Directory) create() *Room {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	code := dir.newCode()
	room := newRoom(code, dir, dir.cfg)
	dir.rooms[code] = room
	go room.run()

	logf(dir.cfg, "GAME: Created game %s", code)

	return room
}

// get looks a room up by code, case-insensitively.
func (dir *Directory) get(code string) *Room {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	return dir.rooms[strings.ToUpper(code)]
}

func (dir *Directory) remove(code string) {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	delete(dir.rooms, code)
}

func (dir *Directory) count() int {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	return len(dir.rooms)
}

// reaperLoop periodically destroys rooms idle past the session timeout.
// Rooms are snapshotted first so room locks are never taken while dir.mu
// is held.
func (dir *Directory) reaperLoop() {
	ticker := time.NewTicker(dir.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-dir.cfg.sessionTimeout)

		dir.mu.Lock()
		snapshot := make([]*Room, 0, len(dir.rooms))
		for _, room := range dir.rooms {
			snapshot = append(snapshot, room)
		}
		dir.mu.Unlock()

		for _, room := range snapshot {
			if room.expire(cutoff) {
				logf(dir.cfg, "GAME: Reaped idle game %s", room.code)
			}
		}
	}
}
