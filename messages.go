package main

import "encoding/json"

// Messages coming from clients
type ClientMessage struct {
	Type     string      `json:"type"`               // "join", "launch", "ready", "play"
	Code     string      `json:"code,omitempty"`     // join
	Name     string      `json:"name,omitempty"`     // join
	Action   string      `json:"action,omitempty"`   // play: "raise", "liar", "equal"
	Face     json.Number `json:"face,omitempty"`     // play (raise)
	Quantity json.Number `json:"quantity,omitempty"` // play (raise)
}

// JoinMessage announces a new player to the whole room. YouAreHost is set
// only on the copy sent to the host themselves.
type JoinMessage struct {
	Type       string `json:"type"` // "join"
	SID        string `json:"sid"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Host       bool   `json:"host"`
	YouAreHost bool   `json:"youAreHost,omitempty"`
}

// LaunchMessage tells clients the game has left the lobby.
type LaunchMessage struct {
	Type   string `json:"type"`   // "launch"
	Status string `json:"status"` // "launched"
}

// RoundStartMessage is private per recipient: Dice is that player's own
// hidden roll. NextPlayer is public and identical for everyone.
type RoundStartMessage struct {
	Type       string `json:"type"` // "roundStart"
	Dice       []int  `json:"dice"`
	NextPlayer string `json:"nextPlayer"`
}

// ReadyMessage marks one player as ready for the next deal.
type ReadyMessage struct {
	Type string `json:"type"` // "ready"
	SID  string `json:"sid"`
}

// PlayMessage broadcasts a resolved action. For raises only Face/Quantity/
// NextPlayer are set (Quantity in face-value form). Challenges reveal the
// active players' rolls and name the player who lost or won a die.
type PlayMessage struct {
	Type          string           `json:"type"`   // "play"
	Action        string           `json:"action"` // "raise", "liar", "equal"
	Face          int              `json:"face,omitempty"`
	Quantity      int              `json:"quantity,omitempty"`
	PlayerLosing  string           `json:"playerLosing,omitempty"`
	PlayerWinning string           `json:"playerWinning,omitempty"`
	Dice          map[string][]int `json:"dice,omitempty"`
	NextPlayer    string           `json:"nextPlayer"`
}

// DisconnectMessage reports a leave, optionally combined with a host change
// and/or a turn change. YouAreHost is set only on the new host's copy.
type DisconnectMessage struct {
	Type       string `json:"type"` // "disconnect"
	SID        string `json:"sid"`
	NewHost    string `json:"newHost,omitempty"`
	YouAreHost bool   `json:"youAreHost,omitempty"`
	NextPlayer string `json:"nextPlayer,omitempty"`
}

// EndGameMessage declares the winner and reveals every remaining hidden roll.
type EndGameMessage struct {
	Type   string           `json:"type"` // "endGame"
	Winner string           `json:"playerWinning"`
	Dice   map[string][]int `json:"dice"`
}

// InfoMessage carries human-readable notices ("X left the game", ...).
type InfoMessage struct {
	Type string `json:"type"` // "info"
	Info string `json:"info"`
}

// ErrorMessage is unicast to the offending connection only.
type ErrorMessage struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}
