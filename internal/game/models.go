package game

import (
	"encoding/json"
	"time"
)

type GameStatus string

const (
	GameStatusLobby    GameStatus = "lobby"
	GameStatusRunning  GameStatus = "running"
	GameStatusPaused   GameStatus = "paused"
	GameStatusFrozen   GameStatus = "frozen"
	GameStatusFinished GameStatus = "finished"
)

type Game struct {
	ID          int             `json:"id"`
	OwnerUserID *int            `json:"owner_user_id"`
	Name        string          `json:"name"`
	Status      GameStatus      `json:"status"`
	MapSeed     int64           `json:"map_seed"`
	MapSize     int             `json:"map_size"`
	MapDensity  float64         `json:"map_density"`
	Params      json.RawMessage `json:"params"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GameConfig is the caller-supplied shape of a new game.
type GameConfig struct {
	Name        string          `json:"name"`
	OwnerUserID *int            `json:"owner_user_id"`
	MapSeed     int64           `json:"map_seed"`
	MapSize     int             `json:"map_size"`
	MapDensity  float64         `json:"map_density"`
	Params      json.RawMessage `json:"params"`
}
