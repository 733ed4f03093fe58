package room

import "github.com/Nateight8/neolink-sub000/internal/rules"

// RoleKind classifies a caller relative to a room.
type RoleKind string

const (
	RolePlayer    RoleKind = "player"
	RoleSpectator RoleKind = "spectator"
	RoleOutsider  RoleKind = "outsider"
)

type Role struct {
	Kind  RoleKind
	Color rules.Color // set only for RolePlayer
}

// Resolve classifies identity against the room's membership. Players win over
// spectators; anyone else is an outsider. Resolution never mutates the room.
func Resolve(r *Room, identity string) Role {
	if r == nil || identity == "" {
		return Role{Kind: RoleOutsider}
	}
	if p, ok := r.PlayerByIdentity(identity); ok {
		return Role{Kind: RolePlayer, Color: p.Color}
	}
	if _, ok := r.Spectators[identity]; ok {
		return Role{Kind: RoleSpectator}
	}
	return Role{Kind: RoleOutsider}
}
