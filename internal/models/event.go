package models

import "time"

// ContractEventType names a lifecycle event emitted by the contract service
type ContractEventType string

const (
	ContractEventCreated          ContractEventType = "created"
	ContractEventSigned           ContractEventType = "signed"
	ContractEventSignatureRequest ContractEventType = "signature_requested"
	ContractEventStatusChanged    ContractEventType = "status_changed"
	ContractEventDeleted          ContractEventType = "deleted"
)

// ContractEvent is the audit record persisted for every lifecycle event
type ContractEvent struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ContractID string            `gorm:"index;type:varchar(64);not null" json:"contract_id"`
	EventType  ContractEventType `gorm:"not null" json:"event_type"`
	ActorRole  string            `json:"actor_role"`
	Detail     string            `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time         `json:"created_at"`
}

// DeadLetter stores a notification that exhausted its delivery attempts
type DeadLetter struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContractID string    `gorm:"index;type:varchar(64)" json:"contract_id"`
	Kind       string    `gorm:"not null" json:"kind"`
	Recipient  string    `json:"recipient"`
	Attempts   int       `json:"attempts"`
	LastError  string    `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
}
