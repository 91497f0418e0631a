package api

import (
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/services"
	"github.com/gofiber/fiber/v2"
)

type saveTemplateRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Content      string   `json:"content"`
	RequiredKeys []string `json:"required_keys"`
}

// handleSaveTemplate upserts a template row and registers it with the
// resolution engine
func (s *APIServer) handleSaveTemplate(c *fiber.Ctx) error {
	var req saveTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ID == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id and content are required"})
	}

	template := &models.ContractTemplate{
		ID:           req.ID,
		Name:         req.Name,
		Category:     req.Category,
		Content:      req.Content,
		RequiredKeys: req.RequiredKeys,
	}

	if len(req.RequiredKeys) > 0 {
		// Validate against a scratch engine so a rejected update never
		// disturbs the live registration of the same id.
		scratch := services.NewTemplateEngine()
		scratch.RegisterTemplate(*template)
		ok, err := scratch.ValidateTemplate(template.ID, req.RequiredKeys)
		if err != nil {
			return s.respondError(c, err)
		}
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "template content is missing required placeholder keys",
			})
		}
	}

	if err := s.templateService.SaveTemplate(template); err != nil {
		return s.respondError(c, err)
	}
	s.engine.RegisterTemplate(*template)

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (s *APIServer) handleListTemplates(c *fiber.Ctx) error {
	templates, err := s.templateService.ListTemplates(c.Query("category"), c.Query("keyword"), c.QueryInt("limit"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(templates)
}

func (s *APIServer) handleGetTemplate(c *fiber.Ctx) error {
	template, err := s.templateService.GetTemplateByID(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(template)
}

func (s *APIServer) handleDeleteTemplate(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.templateService.DeleteTemplate(id); err != nil {
		return s.respondError(c, err)
	}
	s.engine.RemoveTemplate(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *APIServer) handleTemplatePlaceholders(c *fiber.Ctx) error {
	placeholders, err := s.engine.GetTemplatePlaceholders(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"placeholders": placeholders})
}

type validateTemplateRequest struct {
	RequiredKeys []string `json:"required_keys"`
}

func (s *APIServer) handleValidateTemplate(c *fiber.Ctx) error {
	var req validateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	ok, err := s.engine.ValidateTemplate(c.Params("id"), req.RequiredKeys)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"valid": ok})
}
