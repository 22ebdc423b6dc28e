// Package handlers provides HTTP handlers for the MME API.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/drfirst/go-mme/internal/api/middleware"
	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/observability/metrics"
)

const (
	msgInvalidOpioid    = "Invalid opioid"
	msgInvalidSelection = "Invalid opioid selection"
)

// MMEHandler serves the calculate and convert endpoints
type MMEHandler struct {
	table      *mme.Table
	calculator *mme.Calculator
	converter  *mme.Converter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	tracer     trace.Tracer

	totalHistogram metric.Float64Histogram
	riskCounter    metric.Int64Counter
	convHistogram  metric.Float64Histogram
}

// NewMMEHandler creates a new handler. A nil table selects the built-in one
// and a nil meter provider the global one.
func NewMMEHandler(table *mme.Table, m *metrics.Metrics, mp metric.MeterProvider, logger *zap.Logger) (*MMEHandler, error) {
	if table == nil {
		table = mme.DefaultTable()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &MMEHandler{
		table:      table,
		calculator: mme.NewCalculator(table),
		converter:  mme.NewConverter(table),
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("mme-handler"),
	}

	meter := mp.Meter("mme-handler")
	var err error
	h.totalHistogram, err = meter.Float64Histogram("mme.daily_total",
		metric.WithDescription("Total daily MME per calculation"),
		metric.WithUnit("{MME}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create total histogram: %w", err)
	}
	h.riskCounter, err = meter.Int64Counter("mme.risk_classifications",
		metric.WithDescription("Calculations by risk level"))
	if err != nil {
		return nil, fmt.Errorf("failed to create risk counter: %w", err)
	}
	h.convHistogram, err = meter.Float64Histogram("mme.conversion_equivalent",
		metric.WithDescription("MME equivalent of converted doses"),
		metric.WithUnit("{MME}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion histogram: %w", err)
	}

	m.TableEntries.Set(float64(table.Len()))
	return h, nil
}

// Routes returns the versioned API routes
func (h *MMEHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/calculate", h.Calculate)
	r.Post("/convert", h.Convert)
	return r
}

// CalculateResponse is the response for a batch calculation
type CalculateResponse struct {
	Success      bool              `json:"success"`
	TotalMME     float64           `json:"total_mme"`
	Calculations []mme.Calculation `json:"calculations"`
	RiskLevel    mme.RiskLevel     `json:"risk_level"`
	Warnings     []string          `json:"warnings"`
	Skipped      []string          `json:"skipped,omitempty"`
}

// LegacyCalculateResponse is the response for a single-medication calculation
type LegacyCalculateResponse struct {
	Success   bool          `json:"success"`
	TotalMME  float64       `json:"total_mme"`
	Opioid    string        `json:"opioid"`
	Dose      float64       `json:"dose"`
	Frequency int           `json:"frequency"`
	Factor    float64       `json:"factor"`
	RiskLevel mme.RiskLevel `json:"risk_level"`
}

// ConvertResponse is the response for a conversion
type ConvertResponse struct {
	Success bool `json:"success"`
	*mme.Conversion
}

// ErrorResponse is returned for every rejected request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// OpioidsResponse lists the conversion table
type OpioidsResponse struct {
	Success bool        `json:"success"`
	Opioids []mme.Entry `json:"opioids"`
}

// Calculate handles POST /api/v1/mme/calculate. Only the batch form is accepted.
func (h *MMEHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	req, batch, err := decodeCalculate(r)
	if err == nil && !batch {
		err = errNoMedication
	}
	if err != nil {
		h.fail(w, r, "calculate", err, err.Error())
		return
	}
	h.calculateBatch(w, r, req.Medications)
}

// LegacyCalculate handles POST /calculate. A single medication object is
// computed on its own and an unknown opioid is rejected; the batch form
// behaves like Calculate.
func (h *MMEHandler) LegacyCalculate(w http.ResponseWriter, r *http.Request) {
	req, batch, err := decodeCalculate(r)
	if err != nil {
		h.fail(w, r, "calculate", err, err.Error())
		return
	}
	if batch {
		h.calculateBatch(w, r, req.Medications)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "calculate_single")
	defer span.End()

	item, err := lineItem(-1, req.MedicationInput)
	if err != nil {
		h.fail(w, r, "calculate", err, err.Error())
		return
	}
	span.SetAttributes(attribute.String("opioid", item.Opioid))

	calc, err := h.calculator.ComputeOne(item)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, mme.ErrUnknownOpioid) {
			msg = msgInvalidOpioid
		}
		span.SetStatus(codes.Error, msg)
		h.fail(w, r, "calculate", err, msg)
		return
	}

	level, _ := mme.ClassifyRisk(calc.DailyMME)
	h.recordCalculation(ctx, calc.DailyMME, level, 0)

	h.writeJSON(w, http.StatusOK, LegacyCalculateResponse{
		Success:   true,
		TotalMME:  calc.DailyMME,
		Opioid:    calc.Medication,
		Dose:      calc.Dose,
		Frequency: calc.Frequency,
		Factor:    calc.Factor,
		RiskLevel: level,
	})
}

func (h *MMEHandler) calculateBatch(w http.ResponseWriter, r *http.Request, inputs []MedicationInput) {
	ctx, span := h.tracer.Start(r.Context(), "calculate_total",
		trace.WithAttributes(attribute.Int("medications", len(inputs))))
	defer span.End()

	if len(inputs) == 0 {
		h.fail(w, r, "calculate", errNoMedication, errNoMedication.Error())
		return
	}

	items, err := lineItems(inputs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.fail(w, r, "calculate", err, err.Error())
		return
	}

	res, err := h.calculator.ComputeTotal(items)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.fail(w, r, "calculate", err, err.Error())
		return
	}

	if len(res.Skipped) > 0 {
		h.metrics.SkippedEntriesTotal.Add(float64(len(res.Skipped)))
		h.logger.Info("skipped unknown opioids",
			zap.Strings("opioids", res.Skipped),
			zap.String("request_id", middleware.GetRequestID(ctx)),
		)
	}
	h.recordCalculation(ctx, res.TotalMME, res.RiskLevel, len(res.Skipped))
	span.SetAttributes(
		attribute.Float64("total_mme", res.TotalMME),
		attribute.String("risk_level", string(res.RiskLevel)),
	)

	h.writeJSON(w, http.StatusOK, CalculateResponse{
		Success:      true,
		TotalMME:     res.TotalMME,
		Calculations: res.Calculations,
		RiskLevel:    res.RiskLevel,
		Warnings:     res.Warnings,
		Skipped:      res.Skipped,
	})
}

// Convert handles POST /api/v1/mme/convert and POST /convert
func (h *MMEHandler) Convert(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "convert_opioid")
	defer span.End()

	req, err := decodeConvert(r)
	if err != nil {
		h.fail(w, r, "convert", err, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("from_opioid", req.FromOpioid),
		attribute.String("to_opioid", req.ToOpioid),
	)

	dose, err := parseDose(-1, req.Dose)
	if err != nil {
		h.fail(w, r, "convert", err, err.Error())
		return
	}

	res, err := h.converter.Convert(req.FromOpioid, req.ToOpioid, dose)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, mme.ErrUnknownOpioid) {
			msg = msgInvalidSelection
		}
		span.SetStatus(codes.Error, msg)
		h.fail(w, r, "convert", err, msg)
		return
	}

	h.metrics.ConversionsTotal.Inc()
	h.convHistogram.Record(ctx, res.MMEEquivalent, metric.WithAttributes(
		attribute.String("from_opioid", res.FromOpioid),
		attribute.String("to_opioid", res.ToOpioid),
	))

	h.writeJSON(w, http.StatusOK, ConvertResponse{Success: true, Conversion: res})
}

// ListOpioids handles GET /api/v1/opioids
func (h *MMEHandler) ListOpioids(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, OpioidsResponse{Success: true, Opioids: h.table.Entries()})
}

func (h *MMEHandler) recordCalculation(ctx context.Context, total float64, level mme.RiskLevel, skipped int) {
	h.metrics.CalculationsTotal.WithLabelValues(string(level)).Inc()
	attrs := metric.WithAttributes(attribute.String("risk_level", string(level)))
	h.totalHistogram.Record(ctx, total, attrs)
	h.riskCounter.Add(ctx, 1, attrs)

	h.logger.Debug("mme calculated",
		zap.Float64("total_mme", total),
		zap.String("risk_level", string(level)),
		zap.Int("skipped", skipped),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)
}

// fail counts, logs and writes a 400 failure payload
func (h *MMEHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error, message string) {
	kind := "request"
	switch {
	case mme.IsValidation(err):
		kind = string(mme.KindValidation)
	case mme.IsDomain(err):
		kind = string(mme.KindDomain)
	}
	h.metrics.FailuresTotal.WithLabelValues(op, kind).Inc()

	h.logger.Warn("request rejected",
		zap.String("operation", op),
		zap.String("kind", kind),
		zap.Error(err),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: message})
}

// writeJSON encodes before writing the header so an encoding failure can
// still be answered with a 500 payload
func (h *MMEHandler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("encode response failed", zap.Error(err))
		buf.Reset()
		code = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(ErrorResponse{Success: false, Error: "internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}
