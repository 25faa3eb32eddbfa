package parking

import (
	"errors"
	"time"
)

// Session is the result of a successful reserve+charge flow. The access code
// comes from the reserved site and is what the client validates on arrival.
type Session struct {
	Username   string    `json:"username"`
	Location   string    `json:"location"`
	Site       string    `json:"site"`
	AccessCode string    `json:"accessCode"`
	Price      float64   `json:"price"`
	Balance    float64   `json:"balance"`
	Available  int       `json:"available"`
	StartedAt  time.Time `json:"startedAt"`
}

// error if a conditional write kept losing to concurrent writers until the
// retry budget ran out
var ErrConflict = errors.New("conditional update conflict, retries exhausted")

type StartSessionRequest struct {
	Username string `json:"username" binding:"required"`
	Location string `json:"location" binding:"required"`
	Site     string `json:"site" binding:"required"`
}
