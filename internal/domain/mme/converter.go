package mme

// SafetyFactor is applied to a converted dose to allow for incomplete
// cross-tolerance (a fixed 25% reduction).
const SafetyFactor = 0.75

// ConversionAdvisory accompanies every successful conversion
const ConversionAdvisory = "Reduce the calculated dose by 25-50% when switching opioids to account for incomplete cross-tolerance. Titrate to effect and monitor closely."

// Conversion is the outcome of Convert
type Conversion struct {
	FromOpioid       string  `json:"from_opioid"`
	ToOpioid         string  `json:"to_opioid"`
	OriginalDose     float64 `json:"original_dose"`
	MMEEquivalent    float64 `json:"mme_equivalent"`
	ConvertedDose    float64 `json:"converted_dose"`
	SafeStartingDose float64 `json:"safe_starting_dose"`
	Warning          string  `json:"warning"`
}

// Converter converts doses between opioids through MME
type Converter struct {
	table *Table
}

// NewConverter creates a converter; a nil table selects DefaultTable
func NewConverter(table *Table) *Converter {
	if table == nil {
		table = DefaultTable()
	}
	return &Converter{table: table}
}

// Convert expresses dose of from as an equivalent dose of to.
// Both identifiers must be in the table. Each figure is rounded from its
// unrounded value, never from another rounded figure.
func (c *Converter) Convert(from, to string, dose float64) (*Conversion, error) {
	fromFactor, ok := c.table.Factor(from)
	if !ok {
		return nil, unknownOpioidError(-1, "from_opioid", from)
	}
	toFactor, ok := c.table.Factor(to)
	if !ok {
		return nil, unknownOpioidError(-1, "to_opioid", to)
	}
	if !isNonNegativeFinite(dose) {
		return nil, validationError(-1, "dose", ErrInvalidDose)
	}
	if toFactor == 0 {
		return nil, domainError(-1, "to_opioid", ErrZeroFactor)
	}

	mme := dose * fromFactor
	converted := mme / toFactor
	res := &Conversion{
		FromOpioid:       from,
		ToOpioid:         to,
		OriginalDose:     dose,
		MMEEquivalent:    Round2(mme),
		ConvertedDose:    Round2(converted),
		SafeStartingDose: Round2(converted * SafetyFactor),
		Warning:          ConversionAdvisory,
	}
	for _, v := range []float64{res.MMEEquivalent, res.ConvertedDose, res.SafeStartingDose} {
		if !isFinite(v) {
			return nil, domainError(-1, "dose", ErrOverflow)
		}
	}
	return res, nil
}
