package orders

import "mecanix/internal/core/reqctx"

type transition struct {
	from Status
	to   Status
}

// RoleGate decides which roles may request a given transition. It is
// evaluated before the transition table, so a caller can tell "forbidden
// for you" apart from "impossible from here".
type RoleGate struct {
	allowed map[transition][]reqctx.Role
}

// NewRoleGate builds the gate for the workshop's default role policy.
// Admin can do everything; the system role drives the automated hops
// (awaiting-approval after a budget goes out, in-repair after approval,
// finished after the execution completes).
func NewRoleGate() *RoleGate {
	g := &RoleGate{allowed: make(map[transition][]reqctx.Role)}

	g.allow(StatusRequested, StatusReceived, reqctx.RoleAttendant)
	g.allow(StatusReceived, StatusInDiagnosis, reqctx.RoleMechanic)
	g.allow(StatusInDiagnosis, StatusAwaitingApproval, reqctx.RoleAttendant, reqctx.RoleSystem)
	g.allow(StatusAwaitingApproval, StatusInRepair, reqctx.RoleSystem)
	g.allow(StatusInRepair, StatusFinished, reqctx.RoleMechanic, reqctx.RoleSystem)
	g.allow(StatusFinished, StatusDelivered, reqctx.RoleAttendant)

	for from := range map[Status]struct{}{
		StatusRequested:        {},
		StatusReceived:         {},
		StatusInDiagnosis:      {},
		StatusAwaitingApproval: {},
		StatusInRepair:         {},
		StatusFinished:         {},
	} {
		g.allow(from, StatusCancelled, reqctx.RoleAttendant, reqctx.RoleClient)
	}

	return g
}

func (g *RoleGate) allow(from, to Status, roles ...reqctx.Role) {
	key := transition{from: from, to: to}
	g.allowed[key] = append(g.allowed[key], roles...)
}

// CanTransition reports whether the role may request the transition.
// Admin passes every gate; the table still has the final say.
func (g *RoleGate) CanTransition(role reqctx.Role, from, to Status) bool {
	if role == reqctx.RoleAdmin {
		return true
	}
	for _, r := range g.allowed[transition{from: from, to: to}] {
		if r == role {
			return true
		}
	}
	return false
}
