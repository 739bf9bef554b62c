// Package units knows which cooking units measure the same dimension and how
// to convert between them. A Registry is immutable once built and safe for
// concurrent use without locking.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrIncompatibleUnits = errors.New("incompatible units")
)

type Family string

const (
	Volume Family = "volume"
	Mass   Family = "mass"
	Length Family = "length"
	Count  Family = "count"
)

// Unit is a canonical unit. Factor converts one Unit into the base unit of
// its family (milliliter, gram, meter, none).
type Unit struct {
	Name   string
	Family Family
	Factor decimal.Decimal
}

type definition struct {
	name    string
	family  Family
	factor  string
	aliases []string
}

// US customary values, matching the "US" system of common unit libraries.
var definitions = []definition{
	{"milliliter", Volume, "1", []string{"ml", "millilitre", "cc"}},
	{"deciliter", Volume, "100", []string{"dl", "decilitre"}},
	{"liter", Volume, "1000", []string{"l", "litre"}},
	{"pinch", Volume, "0.308057599609375", nil},
	{"dash", Volume, "0.61611519921875", nil},
	{"teaspoon", Volume, "4.92892159375", []string{"tsp", "t"}},
	{"tablespoon", Volume, "14.78676478125", []string{"tbsp", "tbs", "tbl"}},
	{"fluid_ounce", Volume, "29.5735295625", []string{"fl_oz", "floz", "fluid_oz"}},
	{"cup", Volume, "236.5882365", []string{"c"}},
	{"pint", Volume, "473.176473", []string{"pt"}},
	{"quart", Volume, "946.352946", []string{"qt"}},
	{"gallon", Volume, "3785.411784", []string{"gal"}},

	{"milligram", Mass, "0.001", []string{"mg"}},
	{"gram", Mass, "1", []string{"g", "gm", "gramme"}},
	{"kilogram", Mass, "1000", []string{"kg", "kilo"}},
	{"ounce", Mass, "28.349523125", []string{"oz"}},
	{"pound", Mass, "453.59237", []string{"lb", "lbs"}},

	{"millimeter", Length, "0.001", []string{"mm"}},
	{"centimeter", Length, "0.01", []string{"cm"}},
	{"meter", Length, "1", []string{"m", "metre"}},
	{"inch", Length, "0.0254", []string{"in", "inches"}},
	{"foot", Length, "0.3048", []string{"ft", "feet"}},

	{"none", Count, "1", []string{""}},
	{"piece", Count, "1", []string{"pc", "pcs", "each", "ea"}},
	{"dozen", Count, "12", []string{"doz"}},
}

// caseAliases are matched on the raw token before lowercasing. "T" is the
// usual recipe shorthand for tablespoon while "t" means teaspoon.
var caseAliases = map[string]string{
	"T": "tablespoon",
}

type Registry struct {
	units   map[string]Unit
	aliases map[string]string
}

// NewRegistry builds the registry of metric and US customary kitchen units.
func NewRegistry() *Registry {
	r := &Registry{
		units:   make(map[string]Unit, len(definitions)),
		aliases: make(map[string]string),
	}
	for _, d := range definitions {
		r.units[d.name] = Unit{
			Name:   d.name,
			Family: d.family,
			Factor: decimal.RequireFromString(d.factor),
		}
		for _, a := range d.aliases {
			r.aliases[a] = d.name
		}
	}
	return r
}

func normalizeToken(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.ReplaceAll(t, ".", "")
	t = strings.Join(strings.FieldsFunc(t, func(c rune) bool {
		return c == ' ' || c == '-' || c == '_'
	}), "_")
	return t
}

// Lookup resolves a unit token, accepting aliases, abbreviations and plurals.
func (r *Registry) Lookup(token string) (Unit, error) {
	if name, ok := caseAliases[strings.Trim(token, " .")]; ok {
		return r.units[name], nil
	}
	t := normalizeToken(token)
	candidates := []string{t}
	if strings.HasSuffix(t, "es") {
		candidates = append(candidates, strings.TrimSuffix(t, "es"))
	}
	if strings.HasSuffix(t, "s") {
		candidates = append(candidates, strings.TrimSuffix(t, "s"))
	}
	for _, c := range candidates {
		if u, ok := r.units[c]; ok {
			return u, nil
		}
		if name, ok := r.aliases[c]; ok {
			return r.units[name], nil
		}
	}
	return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, token)
}

// Singular normalizes a token that is not a known unit: lower case, words
// joined by "_" and a trailing plural dropped ("Cloves" -> "clove",
// "bunches" -> "bunch"). Known units should go through Lookup instead.
func Singular(token string) string {
	t := normalizeToken(token)
	if stem, ok := strings.CutSuffix(t, "es"); ok && hasSibilantEnd(stem) {
		return stem
	}
	if strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") && len(t) > 1 {
		return strings.TrimSuffix(t, "s")
	}
	return t
}

func hasSibilantEnd(s string) bool {
	for _, end := range []string{"ss", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(s, end) {
			return true
		}
	}
	return false
}

// Canonical returns the singular canonical token for a unit.
func (r *Registry) Canonical(token string) (string, error) {
	u, err := r.Lookup(token)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// Convertible reports whether a and b are known units of the same family.
func (r *Registry) Convertible(a, b string) bool {
	ua, err := r.Lookup(a)
	if err != nil {
		return false
	}
	ub, err := r.Lookup(b)
	if err != nil {
		return false
	}
	return ua.Family == ub.Family
}

// Convert expresses amount of unit from in unit to. Results are not rounded.
func (r *Registry) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	uf, err := r.Lookup(from)
	if err != nil {
		return decimal.Zero, err
	}
	ut, err := r.Lookup(to)
	if err != nil {
		return decimal.Zero, err
	}
	if uf.Family != ut.Family {
		return decimal.Zero, fmt.Errorf("%w: %s (%s) to %s (%s)",
			ErrIncompatibleUnits, uf.Name, uf.Family, ut.Name, ut.Family)
	}
	if uf.Name == ut.Name {
		return amount, nil
	}
	return amount.Mul(uf.Factor).Div(ut.Factor), nil
}
