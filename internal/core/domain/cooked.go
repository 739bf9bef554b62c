package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one consumed ingredient of a cooked recipe.
type LineItem struct {
	Name   string          `validate:"required,max=255"`
	Amount decimal.Decimal `validate:"gte=0"`
	Unit   string          `validate:"max=64"`
}

// NormalizedUnit maps an empty unit to UnitNone.
func (l LineItem) NormalizedUnit() string {
	if l.Unit == "" {
		return UnitNone
	}
	return l.Unit
}

// CookedRecipe is the append-only record that an owner cooked a recipe.
type CookedRecipe struct {
	ID        string
	OwnerID   string
	RecipeID  string
	CreatedAt time.Time
}

type LineOutcome string

const (
	OutcomeDecremented LineOutcome = "decremented"
	OutcomeSkipped     LineOutcome = "skipped"
	OutcomeNotFound    LineOutcome = "not_found"
	OutcomeInvalid     LineOutcome = "invalid"
	OutcomeFailed      LineOutcome = "failed"
)

// LineResult reports what happened to one line item. NewAmount and Unit are
// only meaningful for OutcomeDecremented.
type LineResult struct {
	Name      string
	Outcome   LineOutcome
	NewAmount decimal.Decimal
	Unit      string
	Reason    string
}

type CookReport struct {
	RecordID string
	OwnerID  string
	RecipeID string
	// Recorded is false when the cooked-recipe log could not be written.
	Recorded bool
	Items    []LineResult
}

// Count returns how many line items ended with outcome o.
func (r CookReport) Count(o LineOutcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}
