package entity

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// Sentinel options of enum fields that accept free text.
const (
	OptionOther  = "Other"
	OptionCustom = "Custom"
)

// SplitOption maps a stored value onto an enum field that offers a
// free-text escape option. A value in options selects itself; anything else
// selects sentinel and is preserved as the free-text value.
func SplitOption(value string, options []string, sentinel string) (selected, custom string) {
	if value == "" {
		return "", ""
	}
	for _, o := range options {
		if o != sentinel && strings.EqualFold(o, value) {
			return o, ""
		}
	}
	return sentinel, value
}

// JoinOption is the inverse of SplitOption.
func JoinOption(selected, custom, sentinel string) string {
	if selected == sentinel {
		return strings.TrimSpace(custom)
	}
	return selected
}

// numberText renders a stored number for a form input: "1500" not "1500.00".
func numberText(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optionalNumberText is numberText with "" for nil.
func optionalNumberText(v *float64) string {
	if v == nil {
		return ""
	}
	return numberText(*v)
}

// Money formats an amount with thousands separators and two decimals.
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// Percent formats a 0-100 value with one decimal.
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// moneyColumn renders an amount with Money.
func moneyColumn[T any](header string, fn func(T) float64) table.Column[T] {
	return table.Column[T]{
		Header:   header,
		Accessor: table.Func(func(r T) any { return fn(r) }),
		Cell:     func(r T) string { return Money(fn(r)) },
	}
}

// statusColumn is a badge column keyed by the record's status string.
func statusColumn[T any](field string, variants map[string]table.Variant) table.Column[T] {
	return table.Column[T]{
		Header:        "Status",
		Accessor:      table.Field[T](field),
		UseBadge:      true,
		BadgeVariants: variants,
	}
}

func dateOnly(s string) string {
	return validate.DatePart(s)
}
