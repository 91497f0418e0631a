package services

import (
	"errors"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"gorm.io/gorm"
)

// ErrVersionConflict reports a guarded update that lost the optimistic
// version check. Callers retry the whole read-modify-write.
var ErrVersionConflict = errors.New("contract version conflict")

// ContractFilter scopes a contract listing
type ContractFilter struct {
	OwnerUserID *string
	AdminUserID *string
	Status      *models.ContractStatus
}

// ContractStorage is the persistence boundary for contracts. The service
// layer is agnostic to the backing medium.
type ContractStorage interface {
	CreateContract(contract *models.Contract) error
	GetContract(id string) (*models.Contract, error)
	ListContracts(filter ContractFilter) ([]models.Contract, error)
	// UpdateContract applies partial fields and bumps the row version.
	UpdateContract(id string, fields map[string]interface{}) (*models.Contract, error)
	// UpdateContractGuarded applies partial fields only if the row still
	// carries expectedVersion; otherwise it fails with ErrVersionConflict.
	UpdateContractGuarded(id string, expectedVersion uint, fields map[string]interface{}) (*models.Contract, error)
	DeleteContract(id string) error
}

type gormContractStorage struct {
	db *gorm.DB
}

// NewContractStorage creates a GORM-backed ContractStorage
func NewContractStorage(db *gorm.DB) ContractStorage {
	return &gormContractStorage{db: db}
}

// CreateContract persists a new contract
func (s *gormContractStorage) CreateContract(contract *models.Contract) error {
	if err := s.db.Create(contract).Error; err != nil {
		return &ExternalServiceError{Service: "storage", Err: err}
	}
	return nil
}

// GetContract returns a contract by id
func (s *gormContractStorage) GetContract(id string) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.First(&contract, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("contract", id)
	}
	if err != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: err}
	}
	return &contract, nil
}

// ListContracts returns contracts matching the filter
func (s *gormContractStorage) ListContracts(filter ContractFilter) ([]models.Contract, error) {
	query := s.db.Model(&models.Contract{})

	if filter.OwnerUserID != nil {
		query = query.Where("owner_user_id = ?", *filter.OwnerUserID)
	}
	if filter.AdminUserID != nil {
		query = query.Where("admin_user_id = ?", *filter.AdminUserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var contracts []models.Contract
	if err := query.Order("created_at DESC").Find(&contracts).Error; err != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: err}
	}
	return contracts, nil
}

// UpdateContract applies partial fields to a contract and bumps its version
func (s *gormContractStorage) UpdateContract(id string, fields map[string]interface{}) (*models.Contract, error) {
	return s.update(id, nil, fields)
}

// UpdateContractGuarded applies partial fields only when the optimistic
// version check holds
func (s *gormContractStorage) UpdateContractGuarded(id string, expectedVersion uint, fields map[string]interface{}) (*models.Contract, error) {
	return s.update(id, &expectedVersion, fields)
}

func (s *gormContractStorage) update(id string, expectedVersion *uint, fields map[string]interface{}) (*models.Contract, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	query := s.db.Model(&models.Contract{}).Where("id = ?", id)
	if expectedVersion != nil {
		query = query.Where("version = ?", *expectedVersion)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing row from a lost version race.
		if _, err := s.GetContract(id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}

	return s.GetContract(id)
}

// DeleteContract removes a contract by id
func (s *gormContractStorage) DeleteContract(id string) error {
	result := s.db.Delete(&models.Contract{}, "id = ?", id)
	if result.Error != nil {
		return &ExternalServiceError{Service: "storage", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("contract", id)
	}
	return nil
}
