package services

import (
	"testing"
	"time"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngineWithTemplate(t *testing.T, id, content string) *TemplateEngine {
	t.Helper()
	engine := NewTemplateEngine()
	engine.RegisterTemplate(models.ContractTemplate{
		ID:      id,
		Name:    "test template",
		Content: content,
	})
	return engine
}

func TestProcessTemplate(t *testing.T) {
	t.Run("resolves both syntaxes in the same pass", func(t *testing.T) {
		engine := newEngineWithTemplate(t, "t1", "Hello {{CLIENT_NAME}}, project [PROJECT_NAME].")

		result, err := engine.ProcessTemplate("t1", ContractFields{
			ClientName:  "Acme",
			ProjectName: "Warehouse",
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello Acme, project Warehouse.", result)
	})

	t.Run("monetary amount diverges between syntaxes", func(t *testing.T) {
		// The curly token carries the canonical currency formatting; the
		// bracket token resolves through the legacy shim to the bare
		// number. Both renderings are load-bearing for existing templates.
		engine := newEngineWithTemplate(t, "t1", "Hello {{CLIENT_NAME}}, total [TOTAL_AMOUNT] ({{TOTAL_AMOUNT}})")

		amount := 1234.5
		result, err := engine.ProcessTemplate("t1", ContractFields{
			ClientName:  "Acme",
			TotalAmount: &amount,
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello Acme, total 1234.5 ($1,234.50)", result)
	})

	t.Run("leaves no declared placeholder unresolved", func(t *testing.T) {
		content := "{{CONTRACT_ID}} {{CLIENT_NAME}} [CLIENT_EMAIL] {{CONTRACTOR_NAME}} " +
			"[PROJECT_NAME] {{PROJECT_DESCRIPTION}} [PROJECT_LOCATION] {{START_DATE}} " +
			"[END_DATE] {{TOTAL_AMOUNT}} [TOTAL_AMOUNT] {{PAYMENT_TERMS}} [SCOPE_OF_WORK] " +
			"{{CURRENT_DATE}} [CONTRACT_DATE]"
		engine := newEngineWithTemplate(t, "t1", content)

		result, err := engine.ProcessTemplate("t1", ContractFields{})
		require.NoError(t, err)

		placeholders, err := engine.GetTemplatePlaceholders("t1")
		require.NoError(t, err)
		for _, token := range placeholders {
			assert.NotContains(t, result, token)
		}
	})

	t.Run("missing values degrade to readable defaults", func(t *testing.T) {
		engine := newEngineWithTemplate(t, "t1", "{{CLIENT_NAME}} owes [TOTAL_AMOUNT]")

		result, err := engine.ProcessTemplate("t1", ContractFields{})
		require.NoError(t, err)
		assert.Equal(t, "Client Name owes 0", result)
	})

	t.Run("is idempotent for identical data", func(t *testing.T) {
		engine := newEngineWithTemplate(t, "t1", "{{CLIENT_NAME}} / [PROJECT_NAME] / {{TOTAL_AMOUNT}}")
		amount := 99.9
		date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		fields := ContractFields{
			ClientName:   "Acme",
			ProjectName:  "Depot",
			TotalAmount:  &amount,
			ContractDate: &date,
		}

		first, err := engine.ProcessTemplate("t1", fields)
		require.NoError(t, err)
		second, err := engine.ProcessTemplate("t1", fields)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("substitution is a single pass", func(t *testing.T) {
		// A value that happens to look like a placeholder must survive
		// literally instead of being re-resolved.
		engine := newEngineWithTemplate(t, "t1", "name: {{CLIENT_NAME}}")

		result, err := engine.ProcessTemplate("t1", ContractFields{
			ClientName: "[TOTAL_AMOUNT]",
		})
		require.NoError(t, err)
		assert.Equal(t, "name: [TOTAL_AMOUNT]", result)
	})

	t.Run("custom fields resolve under both syntaxes", func(t *testing.T) {
		engine := newEngineWithTemplate(t, "t1", "permit {{PERMIT_NUMBER}} / [PERMIT_NUMBER]")

		result, err := engine.ProcessTemplate("t1", ContractFields{
			Custom: map[string]string{"permit_number": "B-1042"},
		})
		require.NoError(t, err)
		assert.Equal(t, "permit B-1042 / B-1042", result)
	})

	t.Run("formats dates in long human form", func(t *testing.T) {
		engine := newEngineWithTemplate(t, "t1", "signed on {{CONTRACT_DATE}}")
		date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

		result, err := engine.ProcessTemplate("t1", ContractFields{ContractDate: &date})
		require.NoError(t, err)
		assert.Equal(t, "signed on January 5, 2024", result)
	})

	t.Run("unknown template id fails with NotFoundError", func(t *testing.T) {
		engine := NewTemplateEngine()

		_, err := engine.ProcessTemplate("missing", ContractFields{})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "template", notFound.Resource)
	})
}

func TestRegisterTemplates(t *testing.T) {
	engine := NewTemplateEngine()
	engine.RegisterTemplates([]models.ContractTemplate{
		{ID: "a", Content: "A"},
		{ID: "b", Content: "B"},
	})

	// Upsert by id is idempotent.
	engine.RegisterTemplate(models.ContractTemplate{ID: "a", Content: "A2"})

	template, err := engine.GetTemplate("a")
	require.NoError(t, err)
	assert.Equal(t, "A2", template.Content)

	engine.RemoveTemplate("b")
	_, err = engine.GetTemplate("b")
	assert.Error(t, err)

	engine.ClearTemplates()
	_, err = engine.GetTemplate("a")
	assert.Error(t, err)
}

func TestValidateTemplate(t *testing.T) {
	engine := newEngineWithTemplate(t, "t1", "Hello {{CLIENT_NAME}}, total [TOTAL_AMOUNT]")

	t.Run("accepts keys present under either syntax", func(t *testing.T) {
		ok, err := engine.ValidateTemplate("t1", []string{"CLIENT_NAME", "TOTAL_AMOUNT"})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		ok, err := engine.ValidateTemplate("t1", []string{"CLIENT_NAME", "END_DATE"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := engine.ValidateTemplate("missing", []string{"CLIENT_NAME"})
		assert.Error(t, err)
	})
}

func TestGetTemplatePlaceholders(t *testing.T) {
	engine := newEngineWithTemplate(t, "t1", "{{CLIENT_NAME}} then [TOTAL_AMOUNT] then {{CLIENT_NAME}} again")

	placeholders, err := engine.GetTemplatePlaceholders("t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"{{CLIENT_NAME}}", "[TOTAL_AMOUNT]"}, placeholders)
}
