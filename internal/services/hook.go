package services

import (
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
)

// ContractHook observes contract lifecycle events. Hooks run after the
// state change has been durably stored; a failing hook is logged by the
// caller and never rolls the change back.
type ContractHook interface {
	// CanHandle reports whether the hook wants the given event type
	CanHandle(event models.ContractEventType) bool
	// OnContractEvent is called with the post-mutation contract snapshot
	OnContractEvent(event models.ContractEventType, contract models.Contract) error
}
