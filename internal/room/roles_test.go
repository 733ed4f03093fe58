package room

import (
	"testing"

	"github.com/Nateight8/neolink-sub000/internal/rules"
)

func TestResolve(t *testing.T) {
	r := &Room{
		Players: []Player{
			{Identity: "alice", Color: rules.White},
			{Identity: "bob", Color: rules.Black},
		},
		Spectators: map[string]struct{}{"eve": {}},
	}

	if role := Resolve(r, "alice"); role.Kind != RolePlayer || role.Color != rules.White {
		t.Fatalf("alice: %+v", role)
	}
	if role := Resolve(r, "bob"); role.Kind != RolePlayer || role.Color != rules.Black {
		t.Fatalf("bob: %+v", role)
	}
	if role := Resolve(r, "eve"); role.Kind != RoleSpectator {
		t.Fatalf("eve: %+v", role)
	}
	if role := Resolve(r, "mallory"); role.Kind != RoleOutsider {
		t.Fatalf("mallory: %+v", role)
	}
	if role := Resolve(r, ""); role.Kind != RoleOutsider {
		t.Fatalf("empty identity: %+v", role)
	}
	if role := Resolve(nil, "alice"); role.Kind != RoleOutsider {
		t.Fatalf("nil room: %+v", role)
	}
}
