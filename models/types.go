// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

// Anomaly status constants
const (
	AnomalyNew       = "NEW"
	AnomalyFixed     = "FIXED"
	AnomalyDecrypted = "DECRYPTED"
	AnomalyExpired   = "EXPIRED"
)

// Anomaly kind constants
const (
	KindClassS  = "S"
	KindNoClass = "NOCLASS"
)

// Duel status constants
const (
	DuelPending  = "PENDING"
	DuelDone     = "DONE"
	DuelDeclined = "DECLINED"
	DuelExpired  = "EXPIRED"
)

// Rename status constants
const (
	RenamePending  = "PENDING"
	RenameApproved = "APPROVED"
	RenameDeclined = "DECLINED"
)

// Access level bands, derived from queue position
const (
	AccessGate     = "GATE"
	AccessCorridor = "CORRIDOR"
	AccessOuter    = "OUTER"
)

// Request types

type RegisterRequest struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle"`
}

type RespondDuelRequest struct {
	Accept bool `json:"accept"`
}

type RenameRequestBody struct {
	NewHandle string `json:"new_handle"`
}

type AddAssetRequest struct {
	AssetRef string `json:"asset_ref"`
}

// Response types

type RegisterResponse struct {
	Handle   string `json:"handle"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
	IsNew    bool   `json:"is_new"`
}

type StatusResponse struct {
	Handle      string          `json:"handle"`
	Points      int             `json:"points"`
	Position    int             `json:"position"`
	Total       int             `json:"total"`
	AccessLevel string          `json:"access_level"`
	Registered  string          `json:"registered"`
	Above       []NeighborEntry `json:"above"`
	Below       []NeighborEntry `json:"below"`
}

type NeighborEntry struct {
	Handle string `json:"handle"`
	Points int    `json:"points"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Handle string `json:"handle"`
	Points int    `json:"points"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
}

type PacketResponse struct {
	Packet *Packet `json:"packet"` // nil when no active packet
}

type ConfirmResponse struct {
	PacketID string `json:"packet_id"`
	Reward   int    `json:"reward"`
	Points   int    `json:"points"`
}

type RevealResponse struct {
	PacketID string `json:"packet_id"`
	Kind     string `json:"kind"`
	Payload  string `json:"payload"`
	Reward   int    `json:"reward"`
	Points   int    `json:"points"`
}

type RequestDuelResponse struct {
	DuelID        string `json:"duel_id"`
	TargetHandle  string `json:"target_handle"`
	ExpiresAt     int64  `json:"expires_at"`
	CooldownUntil int64  `json:"cooldown_until"`
}

type DuelStateResponse struct {
	DuelID       string `json:"duel_id"`
	Status       string `json:"status"`
	Challenger   string `json:"challenger"`
	Target       string `json:"target"`
	WinnerHandle string `json:"winner_handle,omitempty"`
}

type RenameResponse struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	AttemptsLeft int    `json:"attempts_left"`
}

type AddAssetResponse struct {
	AssetRef string `json:"asset_ref"`
	Inserted bool   `json:"inserted"`
}

type BroadcastResponse struct {
	Created   int `json:"created"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
}

// Domain types

type User struct {
	ID        int64  `json:"id"`
	Handle    string `json:"handle"`
	Points    int    `json:"points"`
	CreatedAt int64  `json:"created_at"`
}

type Packet struct {
	ID         string `json:"id"`
	UserID     int64  `json:"-"` // owner is implied by the request identity
	Kind       string `json:"kind"`
	Payload    string `json:"-"` // delivered only on reveal
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
	FixedAt    int64  `json:"fixed_at,omitempty"`
	RemainingS int64  `json:"remaining_sec,omitempty"` // stabilization left, FIXED only
}

type Duel struct {
	ID           string `json:"id"`
	ChallengerID int64  `json:"challenger_id"`
	TargetID     int64  `json:"target_id"`
	Status       string `json:"status"`
	WinnerID     *int64 `json:"winner_id,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	ResolvedAt   int64  `json:"resolved_at,omitempty"`
}

type RenameRecord struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	OldHandle string `json:"old_handle"`
	NewHandle string `json:"new_handle"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// FeedMessage is what the delivery collaborator pushes to a traveler.
type FeedMessage struct {
	Type     string `json:"type"` // "anomaly", "digest", "duel", "payload"
	Text     string `json:"text"`
	PacketID string `json:"packet_id,omitempty"`
	DuelID   string `json:"duel_id,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
