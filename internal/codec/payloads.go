package codec

// Payload shapes for every message kind, server and client side.
// Broadcasts are built from these structs rather than ad-hoc maps so
// the wire contract lives in one place.

// PlayerStats is the public view of a player, embedded in joins,
// game_state and final scores.
type PlayerStats struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Score          int     `json:"score"`
	Lives          int     `json:"lives"`
	State          string  `json:"state"`
	TypingSpeed    float64 `json:"typing_speed"`
	Accuracy       float64 `json:"accuracy"`
	RoundsSurvived int     `json:"rounds_survived"`
}

// JoinRequest is the client's player_join payload.
type JoinRequest struct {
	Name string `json:"name"`
}

// JoinReply answers a join attempt on the requesting connection.
type JoinReply struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"player_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// JoinBroadcast announces a new player to everyone.
type JoinBroadcast struct {
	Player       PlayerStats `json:"player"`
	TotalPlayers int         `json:"total_players"`
}

type LeaveBroadcast struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	TotalPlayers int    `json:"total_players"`
}

type GameStartData struct {
	Players int `json:"players"`
}

type RoundStartData struct {
	Round      int     `json:"round"`
	Word       string  `json:"word"`
	TimeLimit  float64 `json:"time_limit"` // seconds
	Difficulty string  `json:"difficulty"`
}

// ResponseData is the client's player_response payload. Complete
// signals the player considers the word finished.
type ResponseData struct {
	Text     string `json:"text"`
	Complete bool   `json:"complete"`
}

type RoundResult struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Correct    bool   `json:"correct"`
	Typed      string `json:"typed"`
	Lives      int    `json:"lives"`
	Eliminated bool   `json:"eliminated"`
}

type RoundEndData struct {
	Round   int           `json:"round"`
	Word    string        `json:"word"`
	Results []RoundResult `json:"results"`
}

type GameEndData struct {
	Winner      *PlayerStats  `json:"winner"`
	FinalScores []PlayerStats `json:"final_scores"`
}

type GameStateData struct {
	Players      []PlayerStats `json:"players"`
	GameActive   bool          `json:"game_active"`
	CurrentRound int           `json:"current_round"`
}

type SpecialMessageData struct {
	Message   string `json:"message"`
	BotsAdded int    `json:"bots_added"`
}
