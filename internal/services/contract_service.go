package services

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// signUpdateAttempts bounds the optimistic retry loop in SignContract for
// writers racing from other processes.
const signUpdateAttempts = 3

// RenderedDocument is the immutable artifact produced by a document
// renderer: three views of the same rendered result
type RenderedDocument interface {
	Bytes() []byte
	Base64() string
	WriteFile(path string) error
}

// PDFRenderer turns a resolved contract into a printable document
type PDFRenderer interface {
	Render(contract models.Contract) (RenderedDocument, error)
}

// CreateContractRequest carries the parties, scheduling and financial terms
// for a new contract
type CreateContractRequest struct {
	TemplateID string `validate:"required"`

	ClientName    string `validate:"required"`
	ClientEmail   string `validate:"omitempty,email"`
	ClientAddress string

	ContractorName    string
	ContractorEmail   string `validate:"omitempty,email"`
	ContractorAddress string

	ProjectName        string
	ProjectDescription string
	ProjectLocation    string

	StartDate    *time.Time
	EndDate      *time.Time
	TotalAmount  *float64
	PaymentTerms string
	ScopeOfWork  string

	// AdminSignature pre-signs the contractor track at creation time, the
	// fast path where the authoring party signs immediately.
	AdminSignature []byte

	OwnerUserID *string
	AdminUserID *string
	CustomData  map[string]string
}

// ContractStatistics aggregates contract counts by status
type ContractStatistics struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Signed   int64 `json:"signed"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Archived int64 `json:"archived"`
}

// StatisticsFilter optionally scopes statistics to one user's contracts
type StatisticsFilter struct {
	OwnerUserID *string
	AdminUserID *string
}

// ContractService owns contract entities and the signature/status state
// machine
type ContractService interface {
	CreateContract(req CreateContractRequest) (*models.Contract, error)
	GetContract(id string) (*models.Contract, error)
	ListContracts(filter ContractFilter) ([]models.Contract, error)
	SignContract(id string, role models.SignerRole, signature []byte, comments string) (*models.Contract, error)
	RequestSignature(id string, role models.SignerRole) (*models.Contract, error)
	UpdateContractStatus(id string, status models.ContractStatus, comments string) (*models.Contract, error)
	DeleteContract(id string) error
	GeneratePDF(id string) (RenderedDocument, error)
	GetStatistics(filter StatisticsFilter) (*ContractStatistics, error)
}

type contractService struct {
	engine   *TemplateEngine
	storage  ContractStorage
	hooks    HookService
	queue    NotificationQueue
	renderer PDFRenderer
	log      *logrus.Logger
	validate *validator.Validate

	// locks serializes the cross-track read-modify-write per contract id.
	// Striped by id hash so the set stays fixed-size over the process
	// lifetime; unrelated contracts sharing a stripe only contend, never
	// corrupt.
	locks [64]sync.Mutex
}

// NewContractService creates a ContractService. queue and renderer may be
// nil; GeneratePDF fails until a renderer is wired.
func NewContractService(engine *TemplateEngine, storage ContractStorage, hooks HookService, queue NotificationQueue, renderer PDFRenderer, log *logrus.Logger) ContractService {
	if log == nil {
		log = logrus.New()
	}
	return &contractService{
		engine:   engine,
		storage:  storage,
		hooks:    hooks,
		queue:    queue,
		renderer: renderer,
		log:      log,
		validate: validator.New(),
	}
}

// CreateContract resolves the template, persists a pending contract
// snapshot and fires the created event
func (s *contractService) CreateContract(req CreateContractRequest) (*models.Contract, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if req.PaymentTerms != "" && req.TotalAmount == nil {
		return nil, &ValidationError{Field: "total_amount", Reason: "required when payment terms are set"}
	}

	id := uuid.New().String()
	content, err := s.engine.ProcessTemplate(req.TemplateID, ContractFields{
		ContractID:         id,
		ClientName:         req.ClientName,
		ClientEmail:        req.ClientEmail,
		ClientAddress:      req.ClientAddress,
		ContractorName:     req.ContractorName,
		ContractorEmail:    req.ContractorEmail,
		ContractorAddress:  req.ContractorAddress,
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
		ProjectLocation:    req.ProjectLocation,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		TotalAmount:        req.TotalAmount,
		PaymentTerms:       req.PaymentTerms,
		ScopeOfWork:        req.ScopeOfWork,
		Custom:             req.CustomData,
	})
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{
		ID:                        id,
		TemplateID:                req.TemplateID,
		ClientName:                req.ClientName,
		ClientEmail:               req.ClientEmail,
		ClientAddress:             req.ClientAddress,
		ContractorName:            req.ContractorName,
		ContractorEmail:           req.ContractorEmail,
		ContractorAddress:         req.ContractorAddress,
		ProjectName:               req.ProjectName,
		ProjectDescription:        req.ProjectDescription,
		ProjectLocation:           req.ProjectLocation,
		StartDate:                 req.StartDate,
		EndDate:                   req.EndDate,
		PaymentTerms:              req.PaymentTerms,
		ScopeOfWork:               req.ScopeOfWork,
		ContractContent:           content,
		Status:                    models.ContractStatusPending,
		ClientSignatureStatus:     models.SignatureStatusNotRequested,
		ContractorSignatureStatus: models.SignatureStatusNotRequested,
		OwnerUserID:               req.OwnerUserID,
		AdminUserID:               req.AdminUserID,
	}
	if req.TotalAmount != nil {
		contract.TotalAmount = *req.TotalAmount
	}
	if len(req.CustomData) > 0 {
		metadata := make(models.JSON, len(req.CustomData))
		for k, v := range req.CustomData {
			metadata[k] = v
		}
		contract.Metadata = metadata
	}
	if len(req.AdminSignature) > 0 {
		now := time.Now()
		contract.ContractorSignatureStatus = models.SignatureStatusSigned
		contract.ContractorSignature = req.AdminSignature
		contract.ContractorSignedAt = &now
	}

	if err := s.storage.CreateContract(contract); err != nil {
		return nil, err
	}

	s.emit(models.ContractEventCreated, *contract)
	s.enqueue(Delivery{
		Kind:      DeliveryContractCreated,
		Contract:  *contract,
		Recipient: contract.ClientEmail,
	})
	return contract, nil
}

// GetContract returns a contract by id
func (s *contractService) GetContract(id string) (*models.Contract, error) {
	return s.storage.GetContract(id)
}

// ListContracts returns contracts matching the filter
func (s *contractService) ListContracts(filter ContractFilter) ([]models.Contract, error) {
	return s.storage.ListContracts(filter)
}

// SignContract sets the named role's track to signed, then re-evaluates the
// cross-track invariant: overall status flips to signed only when the other
// track is already signed.
func (s *contractService) SignContract(id string, role models.SignerRole, signature []byte, comments string) (*models.Contract, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; attempt < signUpdateAttempts; attempt++ {
		contract, err := s.storage.GetContract(id)
		if err != nil {
			return nil, err
		}

		if contract.Track(role).Status == models.SignatureStatusSigned {
			return nil, &IllegalStateError{
				Operation: "sign contract",
				Reason:    string(role) + " track is already signed",
			}
		}

		now := time.Now()
		fields := map[string]interface{}{}
		var other models.SignatureTrack
		switch role {
		case models.SignerRoleContractor:
			fields["contractor_signature_status"] = models.SignatureStatusSigned
			fields["contractor_signature"] = signature
			fields["contractor_signed_at"] = now
			if comments != "" {
				fields["client_notes"] = comments
			}
			other = contract.Track(models.SignerRoleClient)
		default:
			fields["client_signature_status"] = models.SignatureStatusSigned
			fields["client_signature"] = signature
			fields["client_signed_at"] = now
			if comments != "" {
				fields["contractor_notes"] = comments
			}
			other = contract.Track(models.SignerRoleContractor)
		}

		// The essential coordination rule: look at the other track, not
		// just the one being written.
		if other.Status == models.SignatureStatusSigned {
			fields["status"] = models.ContractStatusSigned
		}

		updated, err := s.storage.UpdateContractGuarded(id, contract.Version, fields)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.emit(models.ContractEventSigned, *updated)
		s.enqueue(Delivery{
			Kind:      DeliverySignatureReceived,
			Contract:  *updated,
			Recipient: s.counterpartyEmail(updated, role),
			Role:      role,
		})
		return updated, nil
	}

	return nil, ErrVersionConflict
}

// RequestSignature moves the role's track to requested and notifies the
// addressed party. Overall status is unchanged.
func (s *contractService) RequestSignature(id string, role models.SignerRole) (*models.Contract, error) {
	contract, err := s.storage.GetContract(id)
	if err != nil {
		return nil, err
	}

	track := contract.Track(role)
	if track.Status.Rank() >= models.SignatureStatusRequested.Rank() {
		return nil, &IllegalStateError{
			Operation: "request signature",
			Reason:    string(role) + " track is already " + string(track.Status),
		}
	}

	column := "client_signature_status"
	recipient := contract.ClientEmail
	if role == models.SignerRoleContractor {
		column = "contractor_signature_status"
		recipient = contract.ContractorEmail
	}

	updated, err := s.storage.UpdateContract(id, map[string]interface{}{
		column: models.SignatureStatusRequested,
	})
	if err != nil {
		return nil, err
	}

	s.emit(models.ContractEventSignatureRequest, *updated)
	s.enqueue(Delivery{
		Kind:      DeliverySignatureRequest,
		Contract:  *updated,
		Recipient: recipient,
	})
	return updated, nil
}

// UpdateContractStatus performs a direct administrative transition
func (s *contractService) UpdateContractStatus(id string, status models.ContractStatus, comments string) (*models.Contract, error) {
	switch status {
	case models.ContractStatusPending, models.ContractStatusSigned,
		models.ContractStatusApproved, models.ContractStatusRejected,
		models.ContractStatusArchived:
	default:
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}

	fields := map[string]interface{}{"status": status}
	if comments != "" {
		fields["client_notes"] = comments
	}

	updated, err := s.storage.UpdateContract(id, fields)
	if err != nil {
		return nil, err
	}

	s.emit(models.ContractEventStatusChanged, *updated)
	s.enqueue(Delivery{
		Kind:      DeliveryStatusUpdate,
		Contract:  *updated,
		Recipient: updated.ClientEmail,
	})
	return updated, nil
}

// DeleteContract removes a contract; only pending contracts are deletable
func (s *contractService) DeleteContract(id string) error {
	contract, err := s.storage.GetContract(id)
	if err != nil {
		return err
	}
	if contract.Status != models.ContractStatusPending {
		return &IllegalStateError{
			Operation: "delete contract",
			Reason:    "contract is " + string(contract.Status) + ", only pending contracts can be deleted",
		}
	}
	if err := s.storage.DeleteContract(id); err != nil {
		return err
	}
	s.emit(models.ContractEventDeleted, *contract)
	return nil
}

// GeneratePDF hands the contract to the configured renderer
func (s *contractService) GeneratePDF(id string) (RenderedDocument, error) {
	if s.renderer == nil {
		return nil, &IllegalStateError{
			Operation: "generate pdf",
			Reason:    "no document renderer configured",
		}
	}
	contract, err := s.storage.GetContract(id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(*contract)
}

// GetStatistics returns counts by status over the optionally scoped
// contract set
func (s *contractService) GetStatistics(filter StatisticsFilter) (*ContractStatistics, error) {
	contracts, err := s.storage.ListContracts(ContractFilter{
		OwnerUserID: filter.OwnerUserID,
		AdminUserID: filter.AdminUserID,
	})
	if err != nil {
		return nil, err
	}

	stats := &ContractStatistics{Total: int64(len(contracts))}
	for _, c := range contracts {
		switch c.Status {
		case models.ContractStatusPending:
			stats.Pending++
		case models.ContractStatusSigned:
			stats.Signed++
		case models.ContractStatusApproved:
			stats.Approved++
		case models.ContractStatusRejected:
			stats.Rejected++
		case models.ContractStatusArchived:
			stats.Archived++
		}
	}
	return stats, nil
}

// emit dispatches a lifecycle event; hook failures are logged, never
// propagated
func (s *contractService) emit(event models.ContractEventType, contract models.Contract) {
	if s.hooks == nil {
		return
	}
	if err := s.hooks.Emit(event, contract); err != nil {
		s.log.WithFields(logrus.Fields{
			"contract_id": contract.ID,
			"event":       event,
		}).WithError(err).Warn("lifecycle hook failed")
	}
}

// enqueue queues a best-effort notification. Parties without an address on
// file are skipped rather than dead-lettered.
func (s *contractService) enqueue(delivery Delivery) {
	if s.queue == nil {
		return
	}
	if delivery.Recipient == "" {
		s.log.WithFields(logrus.Fields{
			"contract_id": delivery.Contract.ID,
			"kind":        delivery.Kind,
		}).Debug("no recipient on file, skipping notification")
		return
	}
	s.queue.Enqueue(delivery)
}

func (s *contractService) counterpartyEmail(contract *models.Contract, role models.SignerRole) string {
	if role == models.SignerRoleClient {
		return contract.ContractorEmail
	}
	return contract.ClientEmail
}

func (s *contractService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
