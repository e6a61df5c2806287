// Package transport defines the contracts the sync core needs from the League
// client, plus the LCU implementation of them. The core never talks to the
// client any other way, so tests can swap in fakes.
package transport

import (
	"context"
	"errors"

	"github.com/BananaLabs/oss-companion/internal/types"
)

// ErrUnavailable means the League client could not be reached. Callers surface
// it to the user as "is the game client running?".
var ErrUnavailable = errors.New("league client unavailable")

// Message is one entry of a conversation's history, oldest first.
type Message struct {
	ID        string `json:"id"`
	FromID    string `json:"fromId"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// Chat is the store-and-forward messaging surface the sync protocol rides on.
type Chat interface {
	SendMessage(ctx context.Context, friendID, text string) error
	ListFriends(ctx context.Context) ([]types.Friend, error)
	// FetchRecentMessages returns the conversation history with one friend,
	// ordered oldest to newest.
	FetchRecentMessages(ctx context.Context, friendID string) ([]Message, error)
}

// Gameflow exposes the client's current game state for injection timing.
type Gameflow interface {
	// Phase returns values like "None", "Lobby", "Matchmaking", "ChampSelect",
	// "InProgress".
	Phase(ctx context.Context) (string, error)
	// LockedChampion returns the local player's locked champion during champion
	// select, or ok=false when nothing is locked yet.
	LockedChampion(ctx context.Context) (championID int, ok bool, err error)
}
