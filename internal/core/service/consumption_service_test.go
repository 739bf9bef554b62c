package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/units"
)

type testEnv struct {
	repo    *mockInventoryRepo
	cookLog *mockCookLog
	idem    *mockIdempotency
	svc     *ConsumptionService
}

func newTestEnv(entries ...domain.DensityEntry) *testEnv {
	registry := units.NewRegistry()
	env := &testEnv{
		repo:    newMockInventoryRepo(),
		cookLog: &mockCookLog{},
		idem:    &mockIdempotency{},
	}
	converter := NewUnitConverter(registry, newMockDensityRepo(entries...))
	ledger := NewInventoryLedger(env.repo, registry, 0)
	env.svc = NewConsumptionService(env.cookLog, env.idem, converter, ledger)
	return env
}

func TestRecordCooked_Scenarios(t *testing.T) {
	env := newTestEnv(flourDensity())
	env.repo.put("u1", "flour", "500", "gram")
	env.repo.put("u1", "milk", "4", "none")
	env.repo.put("u1", "salt", "10", "ounce")

	report := env.svc.RecordCooked(context.Background(), "u1", "recipe-7", []domain.LineItem{
		{Name: "flour", Amount: dec("2"), Unit: "cup"},
		{Name: "salt", Amount: dec("3"), Unit: "cups"},
		{Name: "milk", Amount: dec("1"), Unit: ""},
	})

	require.Len(t, report.Items, 3)
	assert.True(t, report.Recorded)
	assert.NotEmpty(t, report.RecordID)

	flour := report.Items[0]
	assert.Equal(t, domain.OutcomeDecremented, flour.Outcome)
	assert.Equal(t, "260.00", flour.NewAmount.StringFixed(2))
	assert.Equal(t, "gram", flour.Unit)

	salt := report.Items[1]
	assert.Equal(t, domain.OutcomeSkipped, salt.Outcome)
	assert.NotEmpty(t, salt.Reason)

	milk := report.Items[2]
	assert.Equal(t, domain.OutcomeDecremented, milk.Outcome)
	assert.Equal(t, "3.00", milk.NewAmount.StringFixed(2))

	assert.True(t, env.repo.amount("u1", "flour").Equal(dec("260")))
	assert.True(t, env.repo.amount("u1", "salt").Equal(dec("10")))
	assert.True(t, env.repo.amount("u1", "milk").Equal(dec("3")))

	require.Len(t, env.cookLog.records, 1)
	assert.Equal(t, "recipe-7", env.cookLog.records[0].RecipeID)
	assert.Equal(t, "u1", env.cookLog.records[0].OwnerID)
}

func TestRecordCooked_PartialFailures(t *testing.T) {
	env := newTestEnv()
	env.repo.put("u1", "rice", "3", "cup")
	env.repo.put("u1", "butter", "200", "gram")

	report := env.svc.RecordCooked(context.Background(), "u1", "r1", []domain.LineItem{
		{Name: "rice", Amount: dec("1"), Unit: "cup"},
		{Name: "truffle", Amount: dec("1"), Unit: "gram"},
		{Name: "", Amount: dec("1"), Unit: "gram"},
		{Name: "butter", Amount: dec("-5"), Unit: "gram"},
		{Name: "butter", Amount: dec("2"), Unit: "tablespoon"},
		{Name: "butter", Amount: dec("50"), Unit: "g"},
	})

	require.Len(t, report.Items, 6)
	outcomes := make([]domain.LineOutcome, 0, len(report.Items))
	for _, it := range report.Items {
		outcomes = append(outcomes, it.Outcome)
	}
	assert.Equal(t, []domain.LineOutcome{
		domain.OutcomeDecremented,
		domain.OutcomeNotFound,
		domain.OutcomeInvalid,
		domain.OutcomeInvalid,
		domain.OutcomeSkipped,
		domain.OutcomeDecremented,
	}, outcomes)

	assert.True(t, env.repo.amount("u1", "rice").Equal(dec("2")))
	assert.True(t, env.repo.amount("u1", "butter").Equal(dec("150")))
	assert.Equal(t, 2, report.Count(domain.OutcomeDecremented))
}

func TestRecordCooked_StorageFailureDoesNotAbortBatch(t *testing.T) {
	env := newTestEnv()
	env.repo.put("u1", "rice", "3", "cup")
	calls := 0
	env.repo.getFn = func() error {
		calls++
		if calls == 1 {
			return errors.New("driver: bad connection")
		}
		return nil
	}

	report := env.svc.RecordCooked(context.Background(), "u1", "r1", []domain.LineItem{
		{Name: "rice", Amount: dec("1"), Unit: "cup"},
		{Name: "rice", Amount: dec("1"), Unit: "cup"},
	})

	assert.Equal(t, domain.OutcomeFailed, report.Items[0].Outcome)
	assert.Contains(t, report.Items[0].Reason, "bad connection")
	assert.Equal(t, domain.OutcomeDecremented, report.Items[1].Outcome)
	assert.True(t, env.repo.amount("u1", "rice").Equal(dec("2")))
}

func TestRecordCooked_CookLogFailure(t *testing.T) {
	env := newTestEnv()
	env.cookLog.fail = true
	env.repo.put("u1", "rice", "3", "cup")

	report := env.svc.RecordCooked(context.Background(), "u1", "r1", []domain.LineItem{
		{Name: "rice", Amount: dec("0.5"), Unit: "cups"},
	})

	assert.False(t, report.Recorded)
	require.Len(t, report.Items, 1)
	assert.Equal(t, domain.OutcomeDecremented, report.Items[0].Outcome)
	assert.True(t, env.repo.amount("u1", "rice").Equal(dec("2.5")))
}

func TestRecordCookedOnce_DuplicateRequest(t *testing.T) {
	env := newTestEnv()
	env.repo.put("u1", "rice", "3", "cup")
	items := []domain.LineItem{{Name: "rice", Amount: dec("1"), Unit: "cup"}}
	ctx := context.Background()

	_, err := env.svc.RecordCookedOnce(ctx, "req-1", "u1", "r1", items)
	require.NoError(t, err)

	_, err = env.svc.RecordCookedOnce(ctx, "req-1", "u1", "r1", items)
	assert.True(t, errors.Is(err, domain.ErrDuplicateRequest))

	// Another owner may reuse the id.
	env.repo.put("u2", "rice", "3", "cup")
	_, err = env.svc.RecordCookedOnce(ctx, "req-1", "u2", "r1", items)
	require.NoError(t, err)

	assert.True(t, env.repo.amount("u1", "rice").Equal(dec("2")))
	assert.Len(t, env.cookLog.records, 2)
}

func TestRecordCookedOnce_NoRequestID(t *testing.T) {
	env := newTestEnv()
	env.repo.put("u1", "rice", "3", "cup")
	items := []domain.LineItem{{Name: "rice", Amount: dec("1"), Unit: "cup"}}

	for i := 0; i < 2; i++ {
		_, err := env.svc.RecordCookedOnce(context.Background(), "", "u1", "r1", items)
		require.NoError(t, err)
	}
	assert.True(t, env.repo.amount("u1", "rice").Equal(dec("1")))
}

func TestRecordCooked_UnknownUnitMatchesStoredSpelling(t *testing.T) {
	env := newTestEnv()
	env.repo.put("u1", "garlic", "6", "clove")

	report := env.svc.RecordCooked(context.Background(), "u1", "r1", []domain.LineItem{
		{Name: "garlic", Amount: dec("2"), Unit: "Cloves"},
		{Name: "garlic", Amount: dec("1"), Unit: "Clove"},
	})

	for _, it := range report.Items {
		assert.Equal(t, domain.OutcomeDecremented, it.Outcome, it.Reason)
		assert.Equal(t, "clove", it.Unit)
	}
	assert.True(t, env.repo.amount("u1", "garlic").Equal(dec("3")))
}

func TestRecordCooked_ReportsUnitOfRowActuallyWritten(t *testing.T) {
	env := newTestEnv(flourDensity())
	env.repo.put("u1", "flour", "500", "gram")
	swapped := false
	env.repo.beforeSet = func() {
		if swapped {
			return
		}
		swapped = true
		env.repo.rows[ingredientKey{"u1", "flour"}] = domain.StoredIngredient{
			OwnerID: "u1", Name: "flour", Amount: dec("0.5"), Unit: "kilogram", Version: 2,
		}
	}

	report := env.svc.RecordCooked(context.Background(), "u1", "bread", []domain.LineItem{
		{Name: "flour", Amount: dec("2"), Unit: "cup"},
	})

	require.Len(t, report.Items, 1)
	assert.Equal(t, domain.OutcomeDecremented, report.Items[0].Outcome)
	assert.Equal(t, "kilogram", report.Items[0].Unit)
	assert.Equal(t, "0.26", report.Items[0].NewAmount.StringFixed(2))
	assert.True(t, env.repo.amount("u1", "flour").Equal(dec("0.26")))
}
