package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleLog() []Entry {
	return []Entry{
		Public(KindAnnouncement, "night falls"),
		ForRole("werewolf", KindWolfChat, "take 3"),
		Private(2, KindCheck, "player 3 is a werewolf"),
		Private(5, KindProtect, "you protect 1"),
		{Kind: "bogus", Level: Level("secret"), Content: "never"},
		ForRole("", KindWolfChat, "malformed role entry"),
		Private(0, KindCheck, "malformed private entry"),
	}
}

func TestVisible_PublicSeesOnlyPublic(t *testing.T) {
	got := Visible(1, "villager", sampleLog())
	assert.Len(t, got, 1)
	assert.Equal(t, "night falls", got[0].Content)
}

func TestVisible_RoleChannel(t *testing.T) {
	got := Visible(4, "werewolf", sampleLog())
	assert.Len(t, got, 2)
	assert.Equal(t, KindWolfChat, got[1].Kind)
}

func TestVisible_PrivateOnlyForOwner(t *testing.T) {
	seer := Visible(2, "seer", sampleLog())
	assert.Len(t, seer, 2)
	assert.Equal(t, "player 3 is a werewolf", seer[1].Content)

	// another seat holding the same role never gets the private entry
	other := Visible(3, "seer", sampleLog())
	assert.Len(t, other, 1)
}

func TestVisible_NeverLeaks(t *testing.T) {
	all := sampleLog()
	for id := 0; id <= 6; id++ {
		for _, role := range []string{"", "villager", "werewolf", "seer", "guard", "witch"} {
			for _, e := range Visible(id, role, all) {
				switch e.Level {
				case LevelPublic:
				case LevelRole:
					assert.Equal(t, role, e.Role)
				case LevelPrivate:
					assert.Equal(t, id, e.AgentID)
				default:
					t.Fatalf("unknown level leaked: %+v", e)
				}
			}
		}
	}
}

func TestVisible_DoesNotMutateInput(t *testing.T) {
	all := sampleLog()
	before := len(all)
	_ = Visible(2, "seer", all)
	assert.Len(t, all, before)
	assert.Equal(t, "night falls", all[0].Content)
}

func TestPublicOnly(t *testing.T) {
	assert.Len(t, PublicOnly(sampleLog()), 1)
}
