package games

import (
	"encoding/json"
	"fmt"

	"github.com/vntrieu/werewolf/internal/memory"
)

// NoTarget is the abstain / no-op target id. Real player ids are 1..N.
const NoTarget = 0

// Player is one seat. Roles never change; IsAlive only flips true→false.
type Player struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	IsAlive   bool   `json:"is_alive"`
	IsSheriff bool   `json:"is_sheriff"`
}

// NightRecord is the audit record of one resolved night.
type NightRecord struct {
	KillVotes    map[int]int `json:"kill_votes,omitempty"` // wolf id -> target
	WolfTarget   int         `json:"wolf_target,omitempty"`
	SeerCheck    int         `json:"seer_check,omitempty"`
	SeerResult   string      `json:"seer_result,omitempty"`
	Protected    int         `json:"protected,omitempty"`
	Cured        int         `json:"cured,omitempty"`
	PoisonTarget int         `json:"poison_target,omitempty"`
	Deaths       []int       `json:"deaths"`
}

// Speech is one spoken turn.
type Speech struct {
	PlayerID int    `json:"player_id"`
	Text     string `json:"text"`
}

// History entry types.
const (
	HistoryNight           = "night"
	HistorySheriffCampaign = "sheriff_campaign"
	HistorySheriffVote     = "sheriff_vote"
	HistorySheriffTransfer = "sheriff_transfer"
	HistoryDeathAnnounce   = "death_announcement"
	HistoryDiscussion      = "discussion"
	HistoryDetonation      = "self_detonation"
	HistoryExileVote       = "exile_vote"
	HistoryJudgment        = "judgment"
)

// HistoryEntry is one phase-result record. Only the fields relevant to Type are set.
type HistoryEntry struct {
	Day      int             `json:"day"`
	Round    int             `json:"round"`
	Phase    string          `json:"phase"`
	Type     string          `json:"type"`
	Night    *NightRecord    `json:"night,omitempty"`
	Votes    map[int]int     `json:"votes,omitempty"` // voter -> target
	Tally    map[int]float64 `json:"tally,omitempty"`
	Speeches []Speech        `json:"speeches,omitempty"`
	Deaths   []int           `json:"deaths,omitempty"`
	Subject  int             `json:"subject,omitempty"` // exiled / elected / detonated player
	Result   string          `json:"result,omitempty"`
}

// SeerCheck is one cumulative seer result. The seer only learns werewolf or not.
type SeerCheck struct {
	Day        int  `json:"day"`
	Target     int  `json:"target"`
	IsWerewolf bool `json:"is_werewolf"`
}

// SheriffTransfer records what a dying sheriff did with the badge.
type SheriffTransfer struct {
	FromID    int  `json:"from_id"`
	ToID      int  `json:"to_id,omitempty"`
	Destroyed bool `json:"destroyed"`
}

// GameState is the full engine state, serialized to JSON for snapshots.
// Phases never mutate a state in place: they Clone it and return the copy.
type GameState struct {
	GameID       string   `json:"game_id"`
	Players      []Player `json:"players"`
	CurrentPhase string   `json:"current_phase"` // day | night
	Node         string   `json:"node"`          // next graph node to execute
	DayNumber    int      `json:"day_number"`
	RoundNumber  int      `json:"round_number"`
	Status       string   `json:"status"` // playing | ended | inconclusive
	Winner       string   `json:"winner,omitempty"`

	History []HistoryEntry `json:"history"`
	Memory  []memory.Entry `json:"memory"`

	// Exile voting (reset every day).
	ExileVotes  map[int]int `json:"exile_votes,omitempty"`
	TieRound    int         `json:"tie_round"`
	TiedPlayers []int       `json:"tied_players,omitempty"`

	// Sheriff election (day 1 only).
	SheriffCandidates   []int            `json:"sheriff_candidates,omitempty"`
	SheriffVotes        map[int]int      `json:"sheriff_votes,omitempty"`
	SheriffVoteRound    int              `json:"sheriff_vote_round"`
	SheriffTied         []int            `json:"sheriff_tied,omitempty"`
	Withdrawn           []int            `json:"withdrawn,omitempty"`
	SheriffTransfer     *SheriffTransfer `json:"sheriff_transfer,omitempty"`
	SheriffElectionDone bool             `json:"sheriff_election_done"`
	SheriffDisabled     bool             `json:"sheriff_disabled,omitempty"`

	// Night roles.
	SeerChecks    []SeerCheck `json:"seer_checks,omitempty"`
	AntidoteUsed  bool        `json:"antidote_used"`
	PoisonUsed    bool        `json:"poison_used"`
	LastProtected int         `json:"last_protected_id,omitempty"`
	Protected     int         `json:"protected_id,omitempty"`

	// Day transients.
	LastNightDeaths []int          `json:"last_night_deaths,omitempty"`
	SelfDetonated   bool           `json:"self_detonated"`
	DetonatorID     int            `json:"detonator_id,omitempty"`
	LastWords       map[int]string `json:"last_words,omitempty"`

	// Version is incremented on each snapshot write.
	Version int `json:"version,omitempty"`
}

// NewGameState builds the initial state for an assigned roster. The first
// node is the first night.
func NewGameState(gameID string, players []Player) *GameState {
	ps := make([]Player, len(players))
	copy(ps, players)
	return &GameState{
		GameID:       gameID,
		Players:      ps,
		CurrentPhase: PhaseNight,
		Node:         NodeNight,
		DayNumber:    1,
		RoundNumber:  1,
		Status:       StatusPlaying,
		History:      []HistoryEntry{},
		Memory:       []memory.Entry{},
	}
}

// Clone returns a copy of the state that shares nothing mutable with s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.History = append([]HistoryEntry(nil), s.History...)
	out.Memory = append([]memory.Entry(nil), s.Memory...)
	out.ExileVotes = cloneIntMap(s.ExileVotes)
	out.TiedPlayers = cloneInts(s.TiedPlayers)
	out.SheriffCandidates = cloneInts(s.SheriffCandidates)
	out.SheriffVotes = cloneIntMap(s.SheriffVotes)
	out.SheriffTied = cloneInts(s.SheriffTied)
	out.Withdrawn = cloneInts(s.Withdrawn)
	if s.SheriffTransfer != nil {
		t := *s.SheriffTransfer
		out.SheriffTransfer = &t
	}
	out.SeerChecks = append([]SeerCheck(nil), s.SeerChecks...)
	out.LastNightDeaths = cloneInts(s.LastNightDeaths)
	if s.LastWords != nil {
		out.LastWords = make(map[int]string, len(s.LastWords))
		for k, v := range s.LastWords {
			out.LastWords[k] = v
		}
	}
	return &out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}

func cloneIntMap(in map[int]int) map[int]int {
	if in == nil {
		return nil
	}
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Player returns the player with id, or nil.
func (s *GameState) Player(id int) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// IsAlive reports whether id is a living player.
func (s *GameState) IsAlive(id int) bool {
	p := s.Player(id)
	return p != nil && p.IsAlive
}

// AliveIDs returns living player ids in seat order.
func (s *GameState) AliveIDs() []int {
	ids := make([]int, 0, len(s.Players))
	for _, p := range s.Players {
		if p.IsAlive {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// AliveWithRole returns living players holding role, in seat order.
func (s *GameState) AliveWithRole(role Role) []int {
	ids := make([]int, 0)
	for _, p := range s.Players {
		if p.IsAlive && p.Role == role {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SheriffID returns the living sheriff's id, or NoTarget.
func (s *GameState) SheriffID() int {
	for _, p := range s.Players {
		if p.IsAlive && p.IsSheriff {
			return p.ID
		}
	}
	return NoTarget
}

// CheckedBySeer reports whether the seer already checked id.
func (s *GameState) CheckedBySeer(id int) bool {
	for _, c := range s.SeerChecks {
		if c.Target == id {
			return true
		}
	}
	return false
}

// PlayerName returns "name(#id)" for logs and announcements.
func (s *GameState) PlayerName(id int) string {
	if p := s.Player(id); p != nil {
		return fmt.Sprintf("%s(#%d)", p.Name, p.ID)
	}
	return fmt.Sprintf("#%d", id)
}

// record appends entry to the shared log, stamping sequence, day and phase.
func (s *GameState) record(e memory.Entry) {
	e.Seq = len(s.Memory) + 1
	e.Day = s.DayNumber
	e.Phase = s.CurrentPhase
	s.Memory = append(s.Memory, e)
}

func (s *GameState) addHistory(h HistoryEntry) {
	h.Day = s.DayNumber
	h.Round = s.RoundNumber
	h.Phase = s.CurrentPhase
	s.History = append(s.History, h)
}

// kill flips id to dead. It reports whether the player was alive.
func (s *GameState) kill(id int) bool {
	p := s.Player(id)
	if p == nil || !p.IsAlive {
		return false
	}
	p.IsAlive = false
	return true
}

// ToMap converts state to a map for JSON snapshot (engine uses this for persistence).
func (s *GameState) ToMap() map[string]interface{} {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// StateFromMap builds GameState from a snapshot map (e.g. from DB).
func StateFromMap(m map[string]interface{}) (*GameState, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var s GameState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}
