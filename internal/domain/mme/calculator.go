package mme

import "math"

// DoseLineItem is one medication in a calculation request.
// Dose is per administration, Frequency is administrations per day.
type DoseLineItem struct {
	Opioid    string
	Dose      float64
	Frequency int
}

// Calculation is the contribution of a single line item
type Calculation struct {
	Medication string  `json:"medication"`
	Dose       float64 `json:"dose"`
	Frequency  int     `json:"frequency"`
	Factor     float64 `json:"factor"`
	DailyMME   float64 `json:"daily_mme"`
}

// Result is the outcome of ComputeTotal
type Result struct {
	Calculations []Calculation `json:"calculations"`
	TotalMME     float64       `json:"total_mme"`
	RiskLevel    RiskLevel     `json:"risk_level"`
	Warnings     []string      `json:"warnings"`
	// Skipped lists identifiers that were not in the table, in input order
	Skipped []string `json:"skipped,omitempty"`
}

// Calculator computes total daily MME against a conversion table
type Calculator struct {
	table *Table
}

// NewCalculator creates a calculator; a nil table selects DefaultTable
func NewCalculator(table *Table) *Calculator {
	if table == nil {
		table = DefaultTable()
	}
	return &Calculator{table: table}
}

// Table returns the conversion table the calculator reads
func (c *Calculator) Table() *Table { return c.table }

// ComputeTotal sums dose × frequency × factor over items.
//
// Items naming an opioid that is not in the table are skipped and reported in
// Result.Skipped rather than failing the batch. A negative or non-finite dose,
// or a negative frequency, fails the whole call with a validation error naming
// the item. The total is accumulated from unrounded contributions; every
// output figure is rounded to two decimals and the risk level is derived from
// the rounded total so that the reported number and tier always agree.
func (c *Calculator) ComputeTotal(items []DoseLineItem) (*Result, error) {
	for i, item := range items {
		if err := validateLineItem(i, item); err != nil {
			return nil, err
		}
	}

	res := &Result{Calculations: make([]Calculation, 0, len(items))}
	var total float64
	for i, item := range items {
		factor, ok := c.table.Factor(item.Opioid)
		if !ok {
			res.Skipped = append(res.Skipped, item.Opioid)
			continue
		}
		daily := item.Dose * float64(item.Frequency) * factor
		rounded := Round2(daily)
		if !isFinite(rounded) {
			return nil, domainError(i, "dose", ErrOverflow)
		}
		total += daily
		res.Calculations = append(res.Calculations, Calculation{
			Medication: item.Opioid,
			Dose:       item.Dose,
			Frequency:  item.Frequency,
			Factor:     factor,
			DailyMME:   rounded,
		})
	}

	res.TotalMME = Round2(total)
	if !isFinite(res.TotalMME) {
		return nil, domainError(-1, "total_mme", ErrOverflow)
	}
	res.RiskLevel, res.Warnings = ClassifyRisk(res.TotalMME)
	return res, nil
}

// ComputeOne computes a single line item. Unlike ComputeTotal an unknown
// opioid is an error.
func (c *Calculator) ComputeOne(item DoseLineItem) (*Calculation, error) {
	if err := validateLineItem(-1, item); err != nil {
		return nil, err
	}
	factor, ok := c.table.Factor(item.Opioid)
	if !ok {
		return nil, unknownOpioidError(-1, "opioid", item.Opioid)
	}
	daily := Round2(item.Dose * float64(item.Frequency) * factor)
	if !isFinite(daily) {
		return nil, domainError(-1, "dose", ErrOverflow)
	}
	return &Calculation{
		Medication: item.Opioid,
		Dose:       item.Dose,
		Frequency:  item.Frequency,
		Factor:     factor,
		DailyMME:   daily,
	}, nil
}

func validateLineItem(index int, item DoseLineItem) error {
	if !isNonNegativeFinite(item.Dose) {
		return validationError(index, "dose", ErrInvalidDose)
	}
	if item.Frequency < 0 {
		return validationError(index, "frequency", ErrInvalidFrequency)
	}
	return nil
}

func isNonNegativeFinite(v float64) bool {
	return isFinite(v) && v >= 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds v to two decimal places, halves away from zero.
// Values within a factor of 100 of math.MaxFloat64 round to +Inf.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
