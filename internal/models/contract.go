package models

import (
	"time"

	"gorm.io/gorm"
)

// ContractStatus is the overall lifecycle status of a contract
type ContractStatus string

const (
	ContractStatusPending  ContractStatus = "pending"
	ContractStatusSigned   ContractStatus = "signed"
	ContractStatusApproved ContractStatus = "approved"
	ContractStatusRejected ContractStatus = "rejected"
	ContractStatusArchived ContractStatus = "archived"
)

// SignatureStatus is the per-party sub-status of a signature track.
// Transitions are forward-only: not_requested -> requested -> signed.
type SignatureStatus string

const (
	SignatureStatusNotRequested SignatureStatus = "not_requested"
	SignatureStatusRequested    SignatureStatus = "requested"
	SignatureStatusSigned       SignatureStatus = "signed"
)

// SignerRole identifies which party a signature operation targets
type SignerRole string

const (
	SignerRoleClient     SignerRole = "client"
	SignerRoleContractor SignerRole = "contractor"
)

// Rank orders signature sub-statuses so forward-only transitions can be enforced
func (s SignatureStatus) Rank() int {
	switch s {
	case SignatureStatusRequested:
		return 1
	case SignatureStatusSigned:
		return 2
	default:
		return 0
	}
}

// Contract is a materialized legal record. ContractContent is resolved once
// at creation time and never rewritten afterwards.
type Contract struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TemplateID string `gorm:"index;type:varchar(64)" json:"template_id"`

	ClientName    string `gorm:"not null" json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`

	ContractorName    string `json:"contractor_name"`
	ContractorEmail   string `json:"contractor_email"`
	ContractorAddress string `json:"contractor_address"`

	ProjectName        string `json:"project_name"`
	ProjectDescription string `gorm:"type:text" json:"project_description"`
	ProjectLocation    string `json:"project_location"`

	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	TotalAmount  float64    `json:"total_amount"`
	PaymentTerms string     `json:"payment_terms"`
	ScopeOfWork  string     `gorm:"type:text" json:"scope_of_work"`

	ContractContent string         `gorm:"type:text;not null" json:"contract_content"`
	Status          ContractStatus `gorm:"default:pending;index" json:"status"`

	ClientSignatureStatus SignatureStatus `gorm:"default:not_requested" json:"client_signature_status"`
	ClientSignature       []byte          `gorm:"type:blob" json:"-"`
	ClientSignedAt        *time.Time      `json:"client_signed_at,omitempty"`
	ClientNotes           string          `gorm:"type:text" json:"client_notes"`

	ContractorSignatureStatus SignatureStatus `gorm:"default:not_requested" json:"contractor_signature_status"`
	ContractorSignature       []byte          `gorm:"type:blob" json:"-"`
	ContractorSignedAt        *time.Time      `json:"contractor_signed_at,omitempty"`
	ContractorNotes           string          `gorm:"type:text" json:"contractor_notes"`

	OwnerUserID *string `gorm:"index;type:varchar(255)" json:"owner_user_id,omitempty"`
	AdminUserID *string `gorm:"index;type:varchar(255)" json:"admin_user_id,omitempty"`
	Metadata    JSON    `gorm:"type:text" json:"metadata"` // custom per-deployment template fields

	// Version implements the optimistic check backing the per-contract
	// read-modify-write in SignContract.
	Version uint `gorm:"default:0" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SignatureTrack is the per-role view of a contract's signature workflow
type SignatureTrack struct {
	Role     SignerRole      `json:"role"`
	Status   SignatureStatus `json:"status"`
	Image    []byte          `json:"-"`
	SignedAt *time.Time      `json:"signed_at,omitempty"`
	Notes    string          `json:"notes"`
}

// Track returns the signature track for the given role
func (c *Contract) Track(role SignerRole) SignatureTrack {
	if role == SignerRoleContractor {
		return SignatureTrack{
			Role:     SignerRoleContractor,
			Status:   c.ContractorSignatureStatus,
			Image:    c.ContractorSignature,
			SignedAt: c.ContractorSignedAt,
			Notes:    c.ContractorNotes,
		}
	}
	return SignatureTrack{
		Role:     SignerRoleClient,
		Status:   c.ClientSignatureStatus,
		Image:    c.ClientSignature,
		SignedAt: c.ClientSignedAt,
		Notes:    c.ClientNotes,
	}
}

// FullySigned reports whether both tracks are signed
func (c *Contract) FullySigned() bool {
	return c.ClientSignatureStatus == SignatureStatusSigned &&
		c.ContractorSignatureStatus == SignatureStatusSigned
}
