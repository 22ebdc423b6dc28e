package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/drfirst/go-mme/internal/domain/mme"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody  = errors.New("invalid request body")
	errNoMedication = errors.New("at least one medication is required")
)

// MedicationInput is one line item as sent by clients. Dose and frequency
// accept JSON numbers or numeric strings.
type MedicationInput struct {
	Opioid    string          `json:"opioid"`
	Dose      json.RawMessage `json:"dose,omitempty"`
	Frequency json.RawMessage `json:"frequency,omitempty"`
}

// CalculateRequest is the body of a calculate call. Either Medications is
// set (batch) or the embedded single medication fields are.
type CalculateRequest struct {
	Medications []MedicationInput `json:"medications"`
	MedicationInput
}

// ConvertRequest is the body of a convert call
type ConvertRequest struct {
	FromOpioid string          `json:"from_opioid"`
	ToOpioid   string          `json:"to_opioid"`
	Dose       json.RawMessage `json:"dose,omitempty"`
}

// decodeCalculate accepts {"medications":[...]}, a bare JSON array of
// medications, or a single medication object. batch reports which form
// was used.
func decodeCalculate(r *http.Request) (req CalculateRequest, batch bool, err error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, false, errInvalidBody
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, false, errInvalidBody
	}

	if body[0] == '[' {
		if err := json.Unmarshal(body, &req.Medications); err != nil {
			return req, false, errInvalidBody
		}
		return req, true, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, false, errInvalidBody
	}
	return req, req.Medications != nil, nil
}

func decodeConvert(r *http.Request) (ConvertRequest, error) {
	var req ConvertRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, errInvalidBody
	}
	return req, nil
}

// lineItems converts client input into domain line items
func lineItems(inputs []MedicationInput) ([]mme.DoseLineItem, error) {
	items := make([]mme.DoseLineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := lineItem(i, in)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// lineItem converts one input; index is -1 for the single-medication form
func lineItem(index int, in MedicationInput) (mme.DoseLineItem, error) {
	dose, err := parseDose(index, in.Dose)
	if err != nil {
		return mme.DoseLineItem{}, err
	}
	freq, err := parseFrequency(index, in.Frequency)
	if err != nil {
		return mme.DoseLineItem{}, err
	}
	return mme.DoseLineItem{
		Opioid:    strings.TrimSpace(in.Opioid),
		Dose:      dose,
		Frequency: freq,
	}, nil
}

// parseDose defaults a missing dose to 0
func parseDose(index int, raw json.RawMessage) (float64, error) {
	v, present, ok := parseNumber(raw)
	if !present {
		return 0, nil
	}
	if !ok || v < 0 {
		return 0, mme.NewValidationError(index, "dose", mme.ErrInvalidDose)
	}
	return v, nil
}

// parseFrequency defaults a missing frequency to once daily
func parseFrequency(index int, raw json.RawMessage) (int, error) {
	v, present, ok := parseNumber(raw)
	if !present {
		return 1, nil
	}
	if !ok || v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, mme.NewValidationError(index, "frequency", mme.ErrInvalidFrequency)
	}
	return int(v), nil
}

// parseNumber reads a JSON number or a string holding one. present is false
// for an absent or null value.
func parseNumber(raw json.RawMessage) (v float64, present, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, true
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, true, false
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, true, false
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, false
	}
	return v, true, true
}
