package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/logging"
	"github.com/rl1809/pantry/internal/metrics"
	"github.com/rl1809/pantry/internal/port"
)

// ConsumptionService applies cooked recipes to the owner's inventory.
type ConsumptionService struct {
	cookLog     port.CookLogRepository
	idempotency port.IdempotencyStore
	converter   *UnitConverter
	ledger      *InventoryLedger
	validate    *validator.Validate
	now         func() time.Time
}

// NewConsumptionService wires the recorder. idempotency may be nil, in which
// case RecordCookedOnce behaves like RecordCooked.
func NewConsumptionService(
	cookLog port.CookLogRepository,
	idempotency port.IdempotencyStore,
	converter *UnitConverter,
	ledger *InventoryLedger,
) *ConsumptionService {
	return &ConsumptionService{
		cookLog:     cookLog,
		idempotency: idempotency,
		converter:   converter,
		ledger:      ledger,
		validate:    newLineItemValidator(),
		now:         time.Now,
	}
}

func newLineItemValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// RecordCookedOnce is RecordCooked guarded by a client request id. A repeated
// id returns domain.ErrDuplicateRequest and changes nothing.
func (s *ConsumptionService) RecordCookedOnce(ctx context.Context, requestID, ownerID, recipeID string, items []domain.LineItem) (domain.CookReport, error) {
	if requestID != "" && s.idempotency != nil {
		key := fmt.Sprintf("cooked:%s:%s", ownerID, requestID)
		ok, err := s.idempotency.SetIdempotency(ctx, key)
		if err != nil {
			return domain.CookReport{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.CookReport{}, domain.ErrDuplicateRequest
		}
	}
	return s.RecordCooked(ctx, ownerID, recipeID, items), nil
}

// RecordCooked logs that ownerID cooked recipeID and decrements every line
// item independently. It always completes; per-item failures are reported
// in the returned CookReport.
func (s *ConsumptionService) RecordCooked(ctx context.Context, ownerID, recipeID string, items []domain.LineItem) domain.CookReport {
	log := logging.Ctx(ctx)

	rec := domain.CookedRecipe{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		RecipeID:  recipeID,
		CreatedAt: s.now().UTC(),
	}
	report := domain.CookReport{
		RecordID: rec.ID,
		OwnerID:  ownerID,
		RecipeID: recipeID,
		Items:    make([]domain.LineResult, 0, len(items)),
	}

	if err := s.cookLog.AppendCooked(ctx, rec); err != nil {
		log.Error().Err(err).Str("owner", ownerID).Str("recipe", recipeID).Msg("failed to record cooked recipe")
	} else {
		report.Recorded = true
		metrics.CookedRecipes.Inc()
	}

	for _, item := range items {
		res := s.processLine(ctx, ownerID, item)
		metrics.RecordLineItem(string(res.Outcome))
		if res.Outcome != domain.OutcomeDecremented {
			log.Warn().
				Str("owner", ownerID).
				Str("ingredient", item.Name).
				Str("amount", item.Amount.String()).
				Str("unit", item.Unit).
				Str("outcome", string(res.Outcome)).
				Str("reason", res.Reason).
				Msg("line item not applied")
		}
		report.Items = append(report.Items, res)
	}

	log.Info().
		Str("owner", ownerID).
		Str("recipe", recipeID).
		Int("decremented", report.Count(domain.OutcomeDecremented)).
		Int("total", len(report.Items)).
		Msg("cooked recipe applied")
	return report
}

func (s *ConsumptionService) processLine(ctx context.Context, ownerID string, item domain.LineItem) domain.LineResult {
	res := domain.LineResult{Name: item.Name}

	if err := s.validate.Struct(item); err != nil {
		res.Outcome = domain.OutcomeInvalid
		res.Reason = fmt.Errorf("%w: %v", domain.ErrInvalidLineItem, err).Error()
		return res
	}

	unit := item.NormalizedUnit()
	out, err := s.ledger.Decrement(ctx, ownerID, item.Name, func(storedUnit string) domain.Conversion {
		return s.converter.Convert(ctx, item.Name, item.Amount, unit, storedUnit)
	})
	if err != nil {
		return failure(res, err)
	}
	if !out.Applied {
		res.Outcome = domain.OutcomeSkipped
		res.Reason = out.Conversion.Reason()
		return res
	}

	res.Outcome = domain.OutcomeDecremented
	res.NewAmount = out.Amount
	res.Unit = out.Unit
	return res
}

func failure(res domain.LineResult, err error) domain.LineResult {
	res.Reason = err.Error()
	if errors.Is(err, domain.ErrIngredientNotFound) {
		res.Outcome = domain.OutcomeNotFound
	} else {
		res.Outcome = domain.OutcomeFailed
	}
	return res
}
