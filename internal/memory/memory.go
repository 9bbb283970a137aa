// Package memory holds the channel-tagged game log and the visibility filter
// that decides which entries each seat may read.
package memory

// Level is the visibility channel of an entry.
type Level string

const (
	// LevelPublic entries are visible to every seat.
	LevelPublic Level = "public"
	// LevelRole entries are visible only to seats holding Entry.Role (e.g. the werewolf channel).
	LevelRole Level = "role"
	// LevelPrivate entries are visible only to the seat Entry.AgentID.
	LevelPrivate Level = "private"
)

// Entry kinds.
const (
	KindAnnouncement = "announcement"
	KindSpeech       = "speech"
	KindWolfChat     = "wolf_chat"
	KindKillVote     = "kill_vote"
	KindVote         = "vote"
	KindSheriff      = "sheriff"
	KindCheck        = "check"
	KindProtect      = "protect"
	KindPotion       = "potion"
	KindDeath        = "death"
	KindLastWords    = "last_words"
	KindDetonation   = "detonation"
)

// Entry is one item of the shared game log.
type Entry struct {
	Seq     int    `json:"seq"`
	Day     int    `json:"day"`
	Phase   string `json:"phase"`
	Kind    string `json:"kind"`
	Level   Level  `json:"level"`
	Role    string `json:"role,omitempty"`     // LevelRole credential
	AgentID int    `json:"agent_id,omitempty"` // LevelPrivate credential
	Speaker int    `json:"speaker,omitempty"`
	Content string `json:"content"`
}

// Public builds a public entry.
func Public(kind, content string) Entry {
	return Entry{Kind: kind, Level: LevelPublic, Content: content}
}

// ForRole builds an entry scoped to one role channel.
func ForRole(role, kind, content string) Entry {
	return Entry{Kind: kind, Level: LevelRole, Role: role, Content: content}
}

// Private builds an entry visible to one seat only.
func Private(agentID int, kind, content string) Entry {
	return Entry{Kind: kind, Level: LevelPrivate, AgentID: agentID, Content: content}
}

// CanSee reports whether a seat with the given id and role may read e.
// Unknown levels are never visible.
func CanSee(agentID int, role string, e Entry) bool {
	switch e.Level {
	case LevelPublic:
		return true
	case LevelRole:
		return e.Role != "" && e.Role == role
	case LevelPrivate:
		return e.AgentID != 0 && e.AgentID == agentID
	default:
		return false
	}
}

// Visible returns the entries of all that the seat may read, in order.
// It does not modify all.
func Visible(agentID int, role string, all []Entry) []Entry {
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if CanSee(agentID, role, e) {
			out = append(out, e)
		}
	}
	return out
}

// PublicOnly returns the public entries of all.
func PublicOnly(all []Entry) []Entry {
	return Visible(0, "", all)
}
