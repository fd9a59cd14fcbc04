package entity

import "github.com/shopspring/decimal"

// Product is a read-only catalog snapshot from this core's perspective.
// Physical dimensions feed delivery-quote line items only.
type Product struct {
	ID       string
	Name     string
	RubPrice decimal.Decimal
	Weight   decimal.NullDecimal
	Length   decimal.NullDecimal
	Width    decimal.NullDecimal
	Height   decimal.NullDecimal
	Active   bool
}
