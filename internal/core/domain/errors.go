package domain

import "errors"

var (
	ErrIngredientNotFound = errors.New("ingredient not tracked")
	ErrDensityNotFound    = errors.New("density entry not found")
	ErrVersionConflict    = errors.New("optimistic lock conflict")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrInvalidLineItem    = errors.New("invalid line item")
	ErrInvalidAmount      = errors.New("amount must not be negative")
)
