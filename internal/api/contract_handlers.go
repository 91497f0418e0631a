package api

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/services"
	"github.com/gofiber/fiber/v2"
)

type createContractRequest struct {
	TemplateID string `json:"template_id"`

	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`

	ContractorName    string `json:"contractor_name"`
	ContractorEmail   string `json:"contractor_email"`
	ContractorAddress string `json:"contractor_address"`

	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	ProjectLocation    string `json:"project_location"`

	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	TotalAmount  *float64   `json:"total_amount"`
	PaymentTerms string     `json:"payment_terms"`
	ScopeOfWork  string     `json:"scope_of_work"`

	AdminSignature string            `json:"admin_signature"` // base64
	AdminUserID    *string           `json:"admin_user_id"`
	CustomData     map[string]string `json:"custom_data"`
}

func (s *APIServer) handleCreateContract(c *fiber.Ctx) error {
	var req createContractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var adminSignature []byte
	if req.AdminSignature != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.AdminSignature)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "admin_signature is not valid base64"})
		}
		adminSignature = decoded
	}

	var owner *string
	if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
		owner = &userID
	}

	contract, err := s.contractService.CreateContract(services.CreateContractRequest{
		TemplateID:         req.TemplateID,
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
		AdminSignature:     adminSignature,
		OwnerUserID:        owner,
		AdminUserID:        req.AdminUserID,
		CustomData:         req.CustomData,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contract)
}

func (s *APIServer) handleListContracts(c *fiber.Ctx) error {
	filter := services.ContractFilter{}
	if v := c.Query("user_id"); v != "" {
		filter.OwnerUserID = &v
	}
	if v := c.Query("admin_id"); v != "" {
		filter.AdminUserID = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.ContractStatus(v)
		filter.Status = &status
	}

	contracts, err := s.contractService.ListContracts(filter)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(contracts)
}

func (s *APIServer) handleGetContract(c *fiber.Ctx) error {
	contract, err := s.contractService.GetContract(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(contract)
}

type signContractRequest struct {
	Role      string `json:"role"`
	Signature string `json:"signature"` // base64 raster image
	Comments  string `json:"comments"`
}

func (s *APIServer) handleSignContract(c *fiber.Ctx) error {
	var req signContractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	role, err := parseRole(req.Role)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var signature []byte
	if req.Signature != "" {
		signature, err = base64.StdEncoding.DecodeString(req.Signature)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "signature is not valid base64"})
		}
	}

	contract, err := s.contractService.SignContract(c.Params("id"), role, signature, req.Comments)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(contract)
}

type requestSignatureRequest struct {
	Role string `json:"role"`
}

func (s *APIServer) handleRequestSignature(c *fiber.Ctx) error {
	var req requestSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	role, err := parseRole(req.Role)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	contract, err := s.contractService.RequestSignature(c.Params("id"), role)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(contract)
}

type updateStatusRequest struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

func (s *APIServer) handleUpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	contract, err := s.contractService.UpdateContractStatus(c.Params("id"), models.ContractStatus(req.Status), req.Comments)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(contract)
}

func (s *APIServer) handleDeleteContract(c *fiber.Ctx) error {
	if err := s.contractService.DeleteContract(c.Params("id")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleContractPDF streams the rendered document; ?format=base64 returns
// the same artifact JSON-wrapped for browser clients
func (s *APIServer) handleContractPDF(c *fiber.Ctx) error {
	document, err := s.contractService.GeneratePDF(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}

	if c.Query("format") == "base64" {
		return c.JSON(fiber.Map{"pdf": document.Base64()})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="contract-%s.pdf"`, c.Params("id")))
	return c.Send(document.Bytes())
}

func (s *APIServer) handleStatistics(c *fiber.Ctx) error {
	filter := services.StatisticsFilter{}
	if v := c.Query("user_id"); v != "" {
		filter.OwnerUserID = &v
	}
	if v := c.Query("admin_id"); v != "" {
		filter.AdminUserID = &v
	}

	stats, err := s.contractService.GetStatistics(filter)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(stats)
}

func parseRole(role string) (models.SignerRole, error) {
	switch models.SignerRole(role) {
	case models.SignerRoleClient:
		return models.SignerRoleClient, nil
	case models.SignerRoleContractor:
		return models.SignerRoleContractor, nil
	default:
		return "", fmt.Errorf("unknown signer role %q", role)
	}
}
