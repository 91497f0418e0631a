package services

import (
	"testing"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use in-memory SQLite database for testing
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to in-memory database")

	err = db.AutoMigrate(
		&models.ContractTemplate{},
		&models.Contract{},
		&models.ContractEvent{},
		&models.DeadLetter{},
	)
	require.NoError(t, err, "Failed to run migrations")

	return db
}

// queueRecorder captures enqueued deliveries for assertions
type queueRecorder struct {
	deliveries []Delivery
}

func (q *queueRecorder) Enqueue(delivery Delivery) {
	q.deliveries = append(q.deliveries, delivery)
}

// stubDocument is a minimal RenderedDocument
type stubDocument struct{ data []byte }

func (d *stubDocument) Bytes() []byte  { return d.data }
func (d *stubDocument) Base64() string { return "c3R1Yg==" }
func (d *stubDocument) WriteFile(path string) error { return nil }

// stubRenderer implements PDFRenderer
type stubRenderer struct {
	rendered []string
}

func (r *stubRenderer) Render(contract models.Contract) (RenderedDocument, error) {
	r.rendered = append(r.rendered, contract.ID)
	return &stubDocument{data: []byte("%PDF-stub")}, nil
}

type contractServiceFixture struct {
	service  ContractService
	engine   *TemplateEngine
	storage  ContractStorage
	queue    *queueRecorder
	renderer *stubRenderer
	db       *gorm.DB
}

func newContractServiceFixture(t *testing.T) *contractServiceFixture {
	t.Helper()
	db := setupTestDB(t)

	engine := NewTemplateEngine()
	engine.RegisterTemplate(models.ContractTemplate{
		ID:      "construction-basic",
		Name:    "Basic construction agreement",
		Content: "Agreement between {{CLIENT_NAME}} and {{CONTRACTOR_NAME}} for {{PROJECT_NAME}}.\nTotal: {{TOTAL_AMOUNT}} ([TOTAL_AMOUNT])\n\nClient:\nContractor:",
	})

	storage := NewContractStorage(db)
	queue := &queueRecorder{}
	renderer := &stubRenderer{}
	log := logrus.New()

	service := NewContractService(engine, storage, NewHookService(), queue, renderer, log)
	return &contractServiceFixture{
		service:  service,
		engine:   engine,
		storage:  storage,
		queue:    queue,
		renderer: renderer,
		db:       db,
	}
}

func validCreateRequest() CreateContractRequest {
	amount := 25000.0
	return CreateContractRequest{
		TemplateID:      "construction-basic",
		ClientName:      "Acme Development",
		ClientEmail:     "owner@acme.test",
		ContractorName:  "BuildRight LLC",
		ContractorEmail: "office@buildright.test",
		ProjectName:     "Warehouse Extension",
		TotalAmount:     &amount,
		PaymentTerms:    "Net 30",
	}
}

func TestCreateContract(t *testing.T) {
	t.Run("creates a pending contract with resolved content", func(t *testing.T) {
		f := newContractServiceFixture(t)

		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, models.ContractStatusPending, contract.Status)
		assert.Contains(t, contract.ContractContent, "Acme Development")
		assert.Contains(t, contract.ContractContent, "$25,000.00")
		assert.Contains(t, contract.ContractContent, "(25000)")
		assert.Equal(t, models.SignatureStatusNotRequested, contract.ClientSignatureStatus)
		assert.Equal(t, models.SignatureStatusNotRequested, contract.ContractorSignatureStatus)

		require.Len(t, f.queue.deliveries, 1)
		assert.Equal(t, DeliveryContractCreated, f.queue.deliveries[0].Kind)
		assert.Equal(t, "owner@acme.test", f.queue.deliveries[0].Recipient)
	})

	t.Run("admin signature pre-signs the contractor track", func(t *testing.T) {
		f := newContractServiceFixture(t)

		req := validCreateRequest()
		req.AdminSignature = []byte{0x89, 0x50}
		contract, err := f.service.CreateContract(req)
		require.NoError(t, err)

		assert.Equal(t, models.SignatureStatusSigned, contract.ContractorSignatureStatus)
		assert.NotNil(t, contract.ContractorSignedAt)
		// One pre-signed track does not flip the overall status.
		assert.Equal(t, models.ContractStatusPending, contract.Status)
	})

	t.Run("unknown template fails with NotFoundError", func(t *testing.T) {
		f := newContractServiceFixture(t)

		req := validCreateRequest()
		req.TemplateID = "missing"
		_, err := f.service.CreateContract(req)

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("missing client name fails validation", func(t *testing.T) {
		f := newContractServiceFixture(t)

		req := validCreateRequest()
		req.ClientName = ""
		_, err := f.service.CreateContract(req)

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("payment terms require an amount", func(t *testing.T) {
		f := newContractServiceFixture(t)

		req := validCreateRequest()
		req.TotalAmount = nil
		_, err := f.service.CreateContract(req)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "total_amount", validation.Field)
	})

	t.Run("content snapshot survives template re-registration", func(t *testing.T) {
		f := newContractServiceFixture(t)

		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)
		originalContent := contract.ContractContent

		f.engine.RegisterTemplate(models.ContractTemplate{
			ID:      "construction-basic",
			Content: "completely different text",
		})

		fetched, err := f.service.GetContract(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, originalContent, fetched.ContractContent)
	})
}

func TestSignContract(t *testing.T) {
	signature := []byte("fake-image-bytes")

	t.Run("one signature leaves the contract pending", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		updated, err := f.service.SignContract(contract.ID, models.SignerRoleClient, signature, "")
		require.NoError(t, err)

		assert.Equal(t, models.ContractStatusPending, updated.Status)
		assert.Equal(t, models.SignatureStatusSigned, updated.ClientSignatureStatus)
		assert.NotNil(t, updated.ClientSignedAt)
		assert.Equal(t, models.SignatureStatusNotRequested, updated.ContractorSignatureStatus)
	})

	t.Run("both signatures flip the overall status regardless of order", func(t *testing.T) {
		for _, first := range []models.SignerRole{models.SignerRoleClient, models.SignerRoleContractor} {
			second := models.SignerRoleContractor
			if first == models.SignerRoleContractor {
				second = models.SignerRoleClient
			}

			f := newContractServiceFixture(t)
			contract, err := f.service.CreateContract(validCreateRequest())
			require.NoError(t, err)

			_, err = f.service.SignContract(contract.ID, first, signature, "")
			require.NoError(t, err)
			updated, err := f.service.SignContract(contract.ID, second, signature, "")
			require.NoError(t, err)

			assert.Equal(t, models.ContractStatusSigned, updated.Status)
			assert.Equal(t, models.SignatureStatusSigned, updated.ClientSignatureStatus)
			assert.Equal(t, models.SignatureStatusSigned, updated.ContractorSignatureStatus)
		}
	})

	t.Run("comments attach to the opposite party's notes", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		updated, err := f.service.SignContract(contract.ID, models.SignerRoleClient, signature, "looks good")
		require.NoError(t, err)

		assert.Equal(t, "looks good", updated.ContractorNotes)
		assert.Empty(t, updated.ClientNotes)
	})

	t.Run("notifies the counter-party", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)
		f.queue.deliveries = nil

		_, err = f.service.SignContract(contract.ID, models.SignerRoleClient, signature, "")
		require.NoError(t, err)

		require.Len(t, f.queue.deliveries, 1)
		assert.Equal(t, DeliverySignatureReceived, f.queue.deliveries[0].Kind)
		assert.Equal(t, "office@buildright.test", f.queue.deliveries[0].Recipient)
	})

	t.Run("re-signing a signed track fails", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.SignContract(contract.ID, models.SignerRoleClient, signature, "")
		require.NoError(t, err)
		_, err = f.service.SignContract(contract.ID, models.SignerRoleClient, signature, "")

		var illegal *IllegalStateError
		assert.ErrorAs(t, err, &illegal)
	})

	t.Run("unknown contract fails with NotFoundError", func(t *testing.T) {
		f := newContractServiceFixture(t)

		_, err := f.service.SignContract("missing", models.SignerRoleClient, signature, "")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestRequestSignature(t *testing.T) {
	t.Run("moves the track to requested without touching status", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)
		f.queue.deliveries = nil

		updated, err := f.service.RequestSignature(contract.ID, models.SignerRoleClient)
		require.NoError(t, err)

		assert.Equal(t, models.SignatureStatusRequested, updated.ClientSignatureStatus)
		assert.Equal(t, models.ContractStatusPending, updated.Status)

		require.Len(t, f.queue.deliveries, 1)
		assert.Equal(t, DeliverySignatureRequest, f.queue.deliveries[0].Kind)
		assert.Equal(t, "owner@acme.test", f.queue.deliveries[0].Recipient)
	})

	t.Run("is forward-only", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.RequestSignature(contract.ID, models.SignerRoleClient)
		require.NoError(t, err)

		// Requesting again would be a no-op transition; it is rejected.
		_, err = f.service.RequestSignature(contract.ID, models.SignerRoleClient)
		var illegal *IllegalStateError
		require.ErrorAs(t, err, &illegal)

		// A signed track cannot move back to requested either.
		_, err = f.service.SignContract(contract.ID, models.SignerRoleContractor, []byte("img"), "")
		require.NoError(t, err)
		_, err = f.service.RequestSignature(contract.ID, models.SignerRoleContractor)
		assert.ErrorAs(t, err, &illegal)
	})
}

func TestUpdateContractStatus(t *testing.T) {
	t.Run("administrative transition", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		updated, err := f.service.UpdateContractStatus(contract.ID, models.ContractStatusArchived, "superseded")
		require.NoError(t, err)
		assert.Equal(t, models.ContractStatusArchived, updated.Status)
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.UpdateContractStatus(contract.ID, "frozen", "")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestDeleteContract(t *testing.T) {
	t.Run("deletes a pending contract", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteContract(contract.ID))

		_, err = f.service.GetContract(contract.ID)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("refuses to delete a non-pending contract", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.UpdateContractStatus(contract.ID, models.ContractStatusApproved, "")
		require.NoError(t, err)

		err = f.service.DeleteContract(contract.ID)
		var illegal *IllegalStateError
		require.ErrorAs(t, err, &illegal)

		_, err = f.service.GetContract(contract.ID)
		assert.NoError(t, err)
	})
}

func TestGeneratePDF(t *testing.T) {
	t.Run("delegates to the configured renderer", func(t *testing.T) {
		f := newContractServiceFixture(t)
		contract, err := f.service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		document, err := f.service.GeneratePDF(contract.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, document.Bytes())
		assert.Equal(t, []string{contract.ID}, f.renderer.rendered)
	})

	t.Run("fails without a renderer", func(t *testing.T) {
		f := newContractServiceFixture(t)
		service := NewContractService(f.engine, f.storage, NewHookService(), f.queue, nil, logrus.New())
		contract, err := service.CreateContract(validCreateRequest())
		require.NoError(t, err)

		_, err = service.GeneratePDF(contract.ID)
		var illegal *IllegalStateError
		assert.ErrorAs(t, err, &illegal)
	})

	t.Run("unknown contract fails with NotFoundError", func(t *testing.T) {
		f := newContractServiceFixture(t)

		_, err := f.service.GeneratePDF("missing")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestGetStatistics(t *testing.T) {
	f := newContractServiceFixture(t)

	owner := "user-1"
	other := "user-2"

	mkContract := func(ownerID string, status models.ContractStatus) {
		req := validCreateRequest()
		req.OwnerUserID = &ownerID
		contract, err := f.service.CreateContract(req)
		require.NoError(t, err)
		if status != models.ContractStatusPending {
			_, err = f.service.UpdateContractStatus(contract.ID, status, "")
			require.NoError(t, err)
		}
	}

	mkContract(owner, models.ContractStatusPending)
	mkContract(owner, models.ContractStatusApproved)
	mkContract(owner, models.ContractStatusArchived)
	mkContract(other, models.ContractStatusRejected)

	t.Run("unscoped counts cover everything", func(t *testing.T) {
		stats, err := f.service.GetStatistics(StatisticsFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.Total)
		assert.Equal(t, int64(1), stats.Pending)
		assert.Equal(t, int64(1), stats.Approved)
		assert.Equal(t, int64(1), stats.Archived)
		assert.Equal(t, int64(1), stats.Rejected)
	})

	t.Run("owner scope filters the set", func(t *testing.T) {
		stats, err := f.service.GetStatistics(StatisticsFilter{OwnerUserID: &owner})
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(0), stats.Rejected)
	})
}

func TestConcurrentSigning(t *testing.T) {
	// Both parties signing at the same instant must still converge on
	// status == signed with both tracks intact.
	f := newContractServiceFixture(t)
	contract, err := f.service.CreateContract(validCreateRequest())
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() {
		_, err := f.service.SignContract(contract.ID, models.SignerRoleClient, []byte("a"), "")
		done <- err
	}()
	go func() {
		_, err := f.service.SignContract(contract.ID, models.SignerRoleContractor, []byte("b"), "")
		done <- err
	}()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	final, err := f.service.GetContract(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusSigned, final.Status)
	assert.True(t, final.FullySigned())
}

func TestLockForIsStablePerContract(t *testing.T) {
	f := newContractServiceFixture(t)
	svc := f.service.(*contractService)

	assert.Same(t, svc.lockFor("c-1"), svc.lockFor("c-1"))
	assert.NotNil(t, svc.lockFor("c-2"))
}
