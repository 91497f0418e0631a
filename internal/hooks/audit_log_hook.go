package hooks

import (
	"fmt"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"gorm.io/gorm"
)

// AuditLogHook persists a ContractEvent row for every lifecycle event
type AuditLogHook struct {
	db *gorm.DB
}

// NewAuditLogHook creates a new AuditLogHook
func NewAuditLogHook(db *gorm.DB) *AuditLogHook {
	return &AuditLogHook{db: db}
}

// CanHandle accepts every event type
func (h *AuditLogHook) CanHandle(event models.ContractEventType) bool {
	return true
}

// OnContractEvent records the event with a snapshot of the contract's
// status and signature tracks
func (h *AuditLogHook) OnContractEvent(event models.ContractEventType, contract models.Contract) error {
	record := &models.ContractEvent{
		ContractID: contract.ID,
		EventType:  event,
		Detail: fmt.Sprintf("status=%s client_signature=%s contractor_signature=%s",
			contract.Status, contract.ClientSignatureStatus, contract.ContractorSignatureStatus),
	}
	if err := h.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record contract event: %w", err)
	}
	return nil
}
