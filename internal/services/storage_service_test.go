package services

import (
	"testing"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedContract(t *testing.T, storage ContractStorage, mutate func(*models.Contract)) *models.Contract {
	t.Helper()
	contract := &models.Contract{
		ID:              uuid.New().String(),
		ClientName:      "Acme",
		ContractContent: "body",
		Status:          models.ContractStatusPending,
	}
	if mutate != nil {
		mutate(contract)
	}
	require.NoError(t, storage.CreateContract(contract))
	return contract
}

func TestContractStorageRoundTrip(t *testing.T) {
	storage := NewContractStorage(setupTestDB(t))
	created := seedContract(t, storage, nil)

	fetched, err := storage.GetContract(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "body", fetched.ContractContent)

	_, err = storage.GetContract("missing")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestContractStorageListFilters(t *testing.T) {
	storage := NewContractStorage(setupTestDB(t))

	owner := "user-1"
	admin := "admin-1"
	seedContract(t, storage, func(c *models.Contract) { c.OwnerUserID = &owner })
	seedContract(t, storage, func(c *models.Contract) { c.OwnerUserID = &owner; c.Status = models.ContractStatusApproved })
	seedContract(t, storage, func(c *models.Contract) { c.AdminUserID = &admin })

	all, err := storage.ListContracts(ContractFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byOwner, err := storage.ListContracts(ContractFilter{OwnerUserID: &owner})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byAdmin, err := storage.ListContracts(ContractFilter{AdminUserID: &admin})
	require.NoError(t, err)
	assert.Len(t, byAdmin, 1)

	approved := models.ContractStatusApproved
	byStatus, err := storage.ListContracts(ContractFilter{Status: &approved})
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}

func TestContractStorageGuardedUpdate(t *testing.T) {
	storage := NewContractStorage(setupTestDB(t))
	created := seedContract(t, storage, nil)

	t.Run("update bumps the version", func(t *testing.T) {
		updated, err := storage.UpdateContract(created.ID, map[string]interface{}{
			"client_notes": "first",
		})
		require.NoError(t, err)
		assert.Equal(t, created.Version+1, updated.Version)
		assert.Equal(t, "first", updated.ClientNotes)
	})

	t.Run("stale version loses the race", func(t *testing.T) {
		// created.Version is stale after the update above.
		_, err := storage.UpdateContractGuarded(created.ID, created.Version, map[string]interface{}{
			"client_notes": "second",
		})
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("current version wins", func(t *testing.T) {
		current, err := storage.GetContract(created.ID)
		require.NoError(t, err)

		updated, err := storage.UpdateContractGuarded(created.ID, current.Version, map[string]interface{}{
			"client_notes": "third",
		})
		require.NoError(t, err)
		assert.Equal(t, "third", updated.ClientNotes)
	})

	t.Run("missing contract reports not found, not a conflict", func(t *testing.T) {
		_, err := storage.UpdateContractGuarded("missing", 0, map[string]interface{}{
			"client_notes": "x",
		})
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestContractStorageDelete(t *testing.T) {
	storage := NewContractStorage(setupTestDB(t))
	created := seedContract(t, storage, nil)

	require.NoError(t, storage.DeleteContract(created.ID))

	_, err := storage.GetContract(created.ID)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	err = storage.DeleteContract(created.ID)
	assert.ErrorAs(t, err, &notFound)
}
