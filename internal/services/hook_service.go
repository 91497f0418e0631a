package services

import (
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
)

// HookService fans contract lifecycle events out to registered hooks
type HookService interface {
	AddHook(hook ContractHook) error
	Emit(event models.ContractEventType, contract models.Contract) error
}

type hookService struct {
	hooks []ContractHook
}

// NewHookService creates a new HookService
func NewHookService() HookService {
	return &hookService{
		hooks: []ContractHook{},
	}
}

func (h *hookService) AddHook(hook ContractHook) error {
	h.hooks = append(h.hooks, hook)
	return nil
}

func (h *hookService) Emit(event models.ContractEventType, contract models.Contract) error {
	for _, hook := range h.hooks {
		if hook.CanHandle(event) {
			if err := hook.OnContractEvent(event, contract); err != nil {
				return err
			}
		}
	}
	return nil
}
