package core

// TaxBreakdown is the result of applying a tax configuration to the
// work subtotal. In both modes Subtotal + Tax == Total holds exactly.
type TaxBreakdown struct {
	Subtotal Money
	Tax      Money
	Total    Money
}

// ApplyTax computes the tax breakdown over the sum of work line
// amounts. In exclusive mode tax is added on top of the entered
// amounts. In inclusive mode the entered amounts already contain tax:
// the net portion is recovered by division and the tax is the exact
// residual, so no yen is lost to double rounding.
func ApplyTax(work []LineItem, tax TaxConfig) (TaxBreakdown, error) {
	if err := tax.Validate(); err != nil {
		return TaxBreakdown{}, err
	}
	var sum Money
	for _, line := range work {
		sum = sum.Add(line.Amount)
	}
	rate := tax.Rate / 100
	switch tax.Mode {
	case TaxInclusive:
		net := RoundMoney(float64(sum.Yen) / (1 + rate))
		return TaxBreakdown{
			Subtotal: net,
			Tax:      Money{Yen: sum.Yen - net.Yen},
			Total:    sum,
		}, nil
	default: // TaxExclusive
		t := RoundMoney(float64(sum.Yen) * rate)
		return TaxBreakdown{
			Subtotal: sum,
			Tax:      t,
			Total:    sum.Add(t),
		}, nil
	}
}
