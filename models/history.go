package models

// HistorySnapshot is the profile view returned by GET /api/history
type HistorySnapshot struct {
	Email          string   `json:"email"`
	Username       *string  `json:"username"` // null until a username is reserved
	Avatar         int      `json:"avatar"`
	Color          string   `json:"color"`
	FriendCode     string   `json:"friend_code,omitempty"`
	Watched        []string `json:"watched"`
	Reviews        []Review `json:"reviews"`
	Following      []string `json:"following"`
	Followers      []string `json:"followers"`
	Energy         int      `json:"energy"`
	EnergyTS       int64    `json:"energy_ts"`
	NextRechargeAt int64    `json:"next_recharge_at"`
}

// WatchResult is returned after a title is recorded as watched
type WatchResult struct {
	Status         string `json:"status"`
	MovieID        string `json:"movie_id"`
	Energy         int    `json:"energy"`
	EnergyTS       int64  `json:"energy_ts"`
	NextRechargeAt int64  `json:"next_recharge_at"`
}

// UserSummary is a search hit or a follow target
type UserSummary struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   int    `json:"avatar"`
	Color    string `json:"color"`
}
