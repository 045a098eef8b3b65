package orders

import (
	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// Actor identifies who is driving a status change.
type Actor struct {
	ID      uuid.UUID
	Role    enums.ProfileRole
	IsAdmin bool
	System  bool
}

// SystemActor represents gateway-driven transitions (webhooks).
func SystemActor() Actor {
	return Actor{System: true}
}

type transitionParty int

const (
	partyStudent transitionParty = iota
	partyAuthor
	partySystem
)

// Allowed transitions per initiating party. Admins bypass the table and may
// move an order between any two valid statuses.
var transitionTable = map[enums.OrderStatus]map[enums.OrderStatus][]transitionParty{
	enums.OrderStatusPendingPayment: {
		enums.OrderStatusPaid:      {partySystem},
		enums.OrderStatusCancelled: {partyStudent, partySystem},
	},
	enums.OrderStatusPaid: {
		enums.OrderStatusInProgress: {partyAuthor},
	},
	enums.OrderStatusInProgress: {
		enums.OrderStatusReview: {partyAuthor},
	},
	enums.OrderStatusReview: {
		enums.OrderStatusCompleted: {partyStudent},
		enums.OrderStatusRevision:  {partyStudent},
		enums.OrderStatusDisputed:  {partyStudent, partyAuthor},
	},
	enums.OrderStatusRevision: {
		enums.OrderStatusReview:   {partyAuthor},
		enums.OrderStatusDisputed: {partyStudent, partyAuthor},
	},
}

// CanTransition reports whether the actor may move an order from one status
// to another. It only checks the state machine; ownership checks live in the
// service layer.
func CanTransition(from, to enums.OrderStatus, actor Actor) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if actor.IsAdmin {
		return true
	}

	allowed, ok := transitionTable[from][to]
	if !ok {
		return false
	}
	for _, party := range allowed {
		if actorMatches(party, actor) {
			return true
		}
	}
	return false
}

func actorMatches(party transitionParty, actor Actor) bool {
	switch party {
	case partySystem:
		return actor.System
	case partyStudent:
		return !actor.System && actor.Role == enums.ProfileRoleStudent
	case partyAuthor:
		return !actor.System && actor.Role == enums.ProfileRoleAuthor
	}
	return false
}
