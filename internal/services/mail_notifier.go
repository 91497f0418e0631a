package services

import (
	"fmt"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// Message template ids for the notifier's private engine. Bodies use the
// same placeholder conventions as contract templates.
const (
	messageTemplateCreated   = "message-contract-created"
	messageTemplateRequest   = "message-signature-request"
	messageTemplateSigned    = "message-signature-received"
	messageTemplateStatus    = "message-status-update"
	messageLinkKey           = "contractLink"
	messageSignerRoleKey     = "signerRole"
	messageContractStatusKey = "contractStatus"
)

// mailNotifier renders notification bodies through a dedicated template
// engine and hands them to the mail log. Actual SMTP/SMS transport is owned
// by the serving deployment; this implementation writes the composed
// message to the structured log, which is also what the tests observe.
type mailNotifier struct {
	engine  *TemplateEngine
	baseURL string
	log     *logrus.Logger
}

// NewMailNotifier creates a Notifier that renders templated message bodies.
// baseURL is used to build the link back to the contract.
func NewMailNotifier(baseURL string, log *logrus.Logger) Notifier {
	engine := NewTemplateEngine()
	engine.RegisterTemplates([]models.ContractTemplate{
		{
			ID:      messageTemplateCreated,
			Name:    "Contract created",
			Content: "Dear {{CLIENT_NAME}},\n\nA new contract {{CONTRACT_ID}} for {{PROJECT_NAME}} has been prepared for you. The contract total is {{TOTAL_AMOUNT}}.\n\nReview and sign here: [CONTRACTLINK]",
		},
		{
			ID:      messageTemplateRequest,
			Name:    "Signature request",
			Content: "Dear {{CLIENT_NAME}},\n\nYour signature is requested on contract {{CONTRACT_ID}} ({{PROJECT_NAME}}, total {{TOTAL_AMOUNT}}).\n\nSign here: [CONTRACTLINK]",
		},
		{
			ID:      messageTemplateSigned,
			Name:    "Signature received",
			Content: "Contract {{CONTRACT_ID}} has been signed by the [SIGNERROLE]. View the current state here: [CONTRACTLINK]",
		},
		{
			ID:      messageTemplateStatus,
			Name:    "Status update",
			Content: "Contract {{CONTRACT_ID}} for {{PROJECT_NAME}} is now [CONTRACTSTATUS]. View it here: [CONTRACTLINK]",
		},
	})
	return &mailNotifier{engine: engine, baseURL: baseURL, log: log}
}

// SendContractNotification notifies the client that a contract was created
func (n *mailNotifier) SendContractNotification(contract models.Contract, recipient string) error {
	return n.compose(messageTemplateCreated, contract, recipient, nil)
}

// SendSignatureRequest asks the addressed party to sign
func (n *mailNotifier) SendSignatureRequest(contract models.Contract, recipient string) error {
	return n.compose(messageTemplateRequest, contract, recipient, nil)
}

// SendSignatureNotification tells the counter-party a signature arrived
func (n *mailNotifier) SendSignatureNotification(contract models.Contract, recipient string, signerRole models.SignerRole) error {
	return n.compose(messageTemplateSigned, contract, recipient, map[string]string{
		messageSignerRoleKey: string(signerRole),
	})
}

// SendStatusUpdateNotification announces an administrative status change
func (n *mailNotifier) SendStatusUpdateNotification(contract models.Contract) error {
	return n.compose(messageTemplateStatus, contract, contract.ClientEmail, map[string]string{
		messageContractStatusKey: string(contract.Status),
	})
}

func (n *mailNotifier) compose(templateID string, contract models.Contract, recipient string, extra map[string]string) error {
	if recipient == "" {
		return &ValidationError{Field: "recipient", Reason: "no address for notification"}
	}

	custom := map[string]string{
		messageLinkKey: fmt.Sprintf("%s/contracts/%s", n.baseURL, contract.ID),
	}
	for k, v := range extra {
		custom[k] = v
	}

	amount := contract.TotalAmount
	body, err := n.engine.ProcessTemplate(templateID, ContractFields{
		ContractID:  contract.ID,
		ClientName:  contract.ClientName,
		ProjectName: contract.ProjectName,
		TotalAmount: &amount,
		Custom:      custom,
	})
	if err != nil {
		return err
	}

	n.log.WithFields(logrus.Fields{
		"recipient":   recipient,
		"contract_id": contract.ID,
		"template":    templateID,
	}).Info(body)
	return nil
}
