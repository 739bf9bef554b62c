package domain

import "github.com/shopspring/decimal"

// ConversionPath records which branch of the converter produced a result.
type ConversionPath string

const (
	PathIdentity     ConversionPath = "identity"
	PathDirect       ConversionPath = "direct"
	PathDensity      ConversionPath = "density"
	PathUnresolvable ConversionPath = "unresolvable"
)

// Conversion is either a resolved amount or Unresolvable. The zero value is
// Unresolvable, so a forgotten assignment can never read as zero consumption.
type Conversion struct {
	amount   decimal.Decimal
	resolved bool
	path     ConversionPath
	reason   string
}

func Resolved(amount decimal.Decimal, path ConversionPath) Conversion {
	return Conversion{amount: amount, resolved: true, path: path}
}

func Unresolvable(reason string) Conversion {
	return Conversion{path: PathUnresolvable, reason: reason}
}

// Amount returns the converted amount and whether the conversion resolved.
func (c Conversion) Amount() (decimal.Decimal, bool) {
	return c.amount, c.resolved
}

func (c Conversion) Resolved() bool { return c.resolved }

func (c Conversion) Path() ConversionPath {
	if c.path == "" {
		return PathUnresolvable
	}
	return c.path
}

// Reason explains an Unresolvable result. Empty for resolved conversions.
func (c Conversion) Reason() string { return c.reason }
