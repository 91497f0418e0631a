package services

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/utils"
)

// placeholderPattern matches literal tokens under either supported syntax,
// {{KEY}} or [KEY].
var placeholderPattern = regexp.MustCompile(`\{\{[A-Za-z0-9_]+\}\}|\[[A-Za-z0-9_]+\]`)

// ContractFields carries the typed data substituted into a template.
// Zero-valued fields degrade to readable defaults so a rendered contract
// never contains blank gaps.
type ContractFields struct {
	ContractID   string
	ContractDate *time.Time

	ClientName    string
	ClientEmail   string
	ClientAddress string

	ContractorName    string
	ContractorEmail   string
	ContractorAddress string

	ProjectName        string
	ProjectDescription string
	ProjectLocation    string

	StartDate    *time.Time
	EndDate      *time.Time
	TotalAmount  *float64
	PaymentTerms string
	ScopeOfWork  string

	// Custom holds per-deployment fields not covered by the built-in map.
	// Each is exposed under both syntaxes via its upper-cased name.
	Custom map[string]string
}

// TemplateEngine holds registered templates and resolves placeholders into
// final contract text. Construct one at the composition root and inject it
// into ContractService; it has no other dependencies.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]models.ContractTemplate
}

// NewTemplateEngine creates an empty template registry
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{templates: make(map[string]models.ContractTemplate)}
}

// RegisterTemplate upserts a template by id. Already-materialized contracts
// keep the content they were resolved against.
func (e *TemplateEngine) RegisterTemplate(template models.ContractTemplate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[template.ID] = template
}

// RegisterTemplates upserts a batch of templates
func (e *TemplateEngine) RegisterTemplates(templates []models.ContractTemplate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range templates {
		e.templates[t.ID] = t
	}
}

// GetTemplate returns a registered template by id
func (e *TemplateEngine) GetTemplate(id string) (models.ContractTemplate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[id]
	if !ok {
		return models.ContractTemplate{}, NewNotFoundError("template", id)
	}
	return t, nil
}

// RemoveTemplate removes a template from the registry
func (e *TemplateEngine) RemoveTemplate(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.templates, id)
}

// ClearTemplates empties the registry
func (e *TemplateEngine) ClearTemplates() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = make(map[string]models.ContractTemplate)
}

// ProcessTemplate resolves every known placeholder in the template into
// final contract text. Substitution is a single pass over the complete
// placeholder set, so an inserted value is never re-scanned against other
// placeholder patterns.
func (e *TemplateEngine) ProcessTemplate(id string, fields ContractFields) (string, error) {
	template, err := e.GetTemplate(id)
	if err != nil {
		return "", err
	}

	replacements := buildReplacements(fields)

	// Longest token first so the alternation never matches a prefix of a
	// longer literal.
	tokens := make([]string, 0, len(replacements))
	for token := range replacements {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = regexp.QuoteMeta(token)
	}
	pattern, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return "", err
	}

	return pattern.ReplaceAllStringFunc(template.Content, func(token string) string {
		return replacements[token]
	}), nil
}

// ValidateTemplate reports whether every required key appears in the
// template under either placeholder syntax.
func (e *TemplateEngine) ValidateTemplate(id string, requiredKeys []string) (bool, error) {
	template, err := e.GetTemplate(id)
	if err != nil {
		return false, err
	}
	for _, key := range requiredKeys {
		curly := "{{" + key + "}}"
		bracket := "[" + key + "]"
		if !strings.Contains(template.Content, curly) && !strings.Contains(template.Content, bracket) {
			return false, nil
		}
	}
	return true, nil
}

// GetTemplatePlaceholders enumerates the literal placeholder tokens present
// in the template, in order of first appearance, for auditing unresolved
// placeholders after resolution.
func (e *TemplateEngine) GetTemplatePlaceholders(id string) ([]string, error) {
	template, err := e.GetTemplate(id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var placeholders []string
	for _, token := range placeholderPattern.FindAllString(template.Content, -1) {
		if !seen[token] {
			seen[token] = true
			placeholders = append(placeholders, token)
		}
	}
	return placeholders, nil
}

// buildReplacements maps every known literal token to its resolved value.
// The curly syntax carries the canonical formatting per logical field; the
// bracket syntax is served through the legacy shim below, which preserves
// the bare-number rendering of monetary amounts that older templates
// depend on.
func buildReplacements(fields ContractFields) map[string]string {
	now := time.Now()

	contractDate := utils.FormatLongDate(now)
	if fields.ContractDate != nil {
		contractDate = utils.FormatLongDate(*fields.ContractDate)
	}
	startDate := utils.FormatLongDate(now)
	if fields.StartDate != nil {
		startDate = utils.FormatLongDate(*fields.StartDate)
	}
	endDate := utils.FormatLongDate(now)
	if fields.EndDate != nil {
		endDate = utils.FormatLongDate(*fields.EndDate)
	}

	formattedAmount := "$0.00"
	bareAmount := "0"
	if fields.TotalAmount != nil {
		formattedAmount = utils.FormatCurrency(*fields.TotalAmount)
		bareAmount = utils.FormatBareAmount(*fields.TotalAmount)
	}

	canonical := map[string]string{
		"CURRENT_DATE":  utils.FormatLongDate(now),
		"CONTRACT_DATE": contractDate,
		"CONTRACT_ID":   orDefault(fields.ContractID, "CONTRACT-ID"),

		"CLIENT_NAME":    orDefault(fields.ClientName, "Client Name"),
		"CLIENT_EMAIL":   orDefault(fields.ClientEmail, "Client Email"),
		"CLIENT_ADDRESS": orDefault(fields.ClientAddress, "Client Address"),

		"CONTRACTOR_NAME":    orDefault(fields.ContractorName, "Contractor Name"),
		"CONTRACTOR_EMAIL":   orDefault(fields.ContractorEmail, "Contractor Email"),
		"CONTRACTOR_ADDRESS": orDefault(fields.ContractorAddress, "Contractor Address"),

		"PROJECT_NAME":        orDefault(fields.ProjectName, "Project Name"),
		"PROJECT_DESCRIPTION": orDefault(fields.ProjectDescription, "Project Description"),
		"PROJECT_LOCATION":    orDefault(fields.ProjectLocation, "Project Location"),

		"START_DATE": startDate,
		"END_DATE":   endDate,

		"TOTAL_AMOUNT":  formattedAmount,
		"PAYMENT_TERMS": orDefault(fields.PaymentTerms, "Payment Terms"),
		"SCOPE_OF_WORK": orDefault(fields.ScopeOfWork, "Scope of Work"),
	}

	// Legacy bracket-syntax overrides: same field, divergent rendering.
	legacy := map[string]string{
		"TOTAL_AMOUNT": bareAmount,
	}

	replacements := make(map[string]string, 2*(len(canonical)+len(fields.Custom)))
	for key, value := range canonical {
		replacements["{{"+key+"}}"] = value
		if override, ok := legacy[key]; ok {
			replacements["["+key+"]"] = override
		} else {
			replacements["["+key+"]"] = value
		}
	}

	for key, value := range fields.Custom {
		normalized := utils.NormalizeKey(key)
		if normalized == "" {
			continue
		}
		replacements["{{"+normalized+"}}"] = value
		replacements["["+normalized+"]"] = value
	}

	return replacements
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
