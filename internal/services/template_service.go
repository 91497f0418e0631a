package services

import (
	"errors"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TemplateService handles template persistence. Registered templates are
// loaded into the in-memory TemplateEngine at startup; the engine, not this
// service, performs resolution.
type TemplateService interface {
	SaveTemplate(template *models.ContractTemplate) error
	GetTemplateByID(id string) (*models.ContractTemplate, error)
	ListTemplates(category, keyword string, limit int) ([]models.ContractTemplate, error)
	DeleteTemplate(id string) error
	LoadIntoEngine(engine *TemplateEngine) (int, error)
}

type templateService struct {
	db *gorm.DB
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(db *gorm.DB) TemplateService {
	return &templateService{db: db}
}

// SaveTemplate upserts a template row by id
func (s *templateService) SaveTemplate(template *models.ContractTemplate) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(template).Error
	if err != nil {
		return &ExternalServiceError{Service: "storage", Err: err}
	}
	return nil
}

// GetTemplateByID returns a template by its ID
func (s *templateService) GetTemplateByID(id string) (*models.ContractTemplate, error) {
	var template models.ContractTemplate
	err := s.db.First(&template, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("template", id)
	}
	if err != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: err}
	}
	return &template, nil
}

// ListTemplates returns templates with optional filtering
func (s *templateService) ListTemplates(category, keyword string, limit int) ([]models.ContractTemplate, error) {
	query := s.db.Model(&models.ContractTemplate{})

	if category != "" {
		query = query.Where("category = ?", category)
	}

	if keyword != "" {
		query = query.Where("name LIKE ? OR content LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var templates []models.ContractTemplate
	if err := query.Find(&templates).Error; err != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: err}
	}
	return templates, nil
}

// DeleteTemplate deletes a template by its ID
func (s *templateService) DeleteTemplate(id string) error {
	result := s.db.Delete(&models.ContractTemplate{}, "id = ?", id)
	if result.Error != nil {
		return &ExternalServiceError{Service: "storage", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("template", id)
	}
	return nil
}

// LoadIntoEngine registers every persisted template with the engine and
// returns how many were loaded
func (s *templateService) LoadIntoEngine(engine *TemplateEngine) (int, error) {
	templates, err := s.ListTemplates("", "", 0)
	if err != nil {
		return 0, err
	}
	engine.RegisterTemplates(templates)
	return len(templates), nil
}
