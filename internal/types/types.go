package types

import "time"

// Availability mirrors the presence states the League client reports for a friend.
type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityAway    Availability = "away"
	AvailabilityOffline Availability = "offline"
	AvailabilityInGame  Availability = "in-game"
)

// RequestType is the discriminant carried inside every sync payload.
type RequestType string

const (
	RequestTypeRequest RequestType = "request"
	RequestTypeAccept  RequestType = "accept"
	RequestTypeReject  RequestType = "reject"
)

// PayloadVersion is the only schema version this build understands.
// Decoders reject anything else rather than guessing.
const PayloadVersion = 1

// MaxPartySize is the roster cap excluding the local user (5 total with self).
const MaxPartySize = 4

// SkinSelection is one user's cosmetic choice for one champion. ChromaID and
// Fantome are nullable on the wire; Fantome may be the authoritative field for
// custom content.
type SkinSelection struct {
	ChampionID int     `json:"championId"`
	SkinID     int     `json:"skinId"`
	ChromaID   *int    `json:"chromaId"`
	Fantome    *string `json:"fantome"`
}

// SyncPayload is the unit exchanged over chat. Field names are part of the wire
// contract shared with other installations.
type SyncPayload struct {
	UserSkins   []SkinSelection `json:"userSkins"`
	RequestType RequestType     `json:"requestType"`
	Version     int             `json:"version"`
}

// PartyMember is a confirmed participant in the local user's party. Skins holds
// that member's selections as of their last sync message, keyed by champion id.
type PartyMember struct {
	ID           string
	Name         string
	Availability Availability
	Skins        map[int]SkinSelection
	LastSeenAt   time.Time
}

// PendingSyncRequest is the single inbound request awaiting a local decision.
// Token keeps the still-encoded payload so accept can decode exactly what was
// requested.
type PendingSyncRequest struct {
	FromMemberID   string
	FromMemberName string
	Token          string
	ReceivedAt     time.Time
}

// Friend is one entry from the League client's friends list.
type Friend struct {
	ID           string
	Name         string
	Availability Availability
	Game         string
}
