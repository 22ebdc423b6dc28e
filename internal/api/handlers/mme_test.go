package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/observability/metrics"
)

func newTestHandler(t *testing.T) (*MMEHandler, *metrics.Metrics, *observer.ObservedLogs) {
	t.Helper()
	m := metrics.New(nil)
	core, logs := observer.New(zapcore.DebugLevel)
	h, err := NewMMEHandler(nil, m, nil, zap.New(core))
	require.NoError(t, err)
	return h, m, logs
}

func post(t *testing.T, fn http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec, out
}

func TestCalculate_Scenarios(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name      string
		body      string
		wantTotal float64
		wantRisk  string
	}{
		{"oxycodone", `{"medications":[{"opioid":"oxycodone","dose":10,"frequency":2}]}`, 30, "low"},
		{"morphine", `{"medications":[{"opioid":"morphine","dose":30,"frequency":2}]}`, 60, "moderate"},
		{"fentanyl patch", `{"medications":[{"opioid":"fentanyl_patch","dose":25,"frequency":1}]}`, 60, "moderate"},
		{"buprenorphine", `{"medications":[{"opioid":"buprenorphine","dose":4,"frequency":1}]}`, 120, "critical"},
		{"bare array", `[{"opioid":"hydromorphone","dose":6,"frequency":4}]`, 96, "high"},
		{"numeric strings", `{"medications":[{"opioid":"morphine","dose":"30","frequency":"2"}]}`, 60, "moderate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h.Calculate, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, out["success"])
			assert.Equal(t, tt.wantTotal, out["total_mme"])
			assert.Equal(t, tt.wantRisk, out["risk_level"])
			assert.NotEmpty(t, out["warnings"])

			calcs := out["calculations"].([]interface{})
			require.Len(t, calcs, 1)
			first := calcs[0].(map[string]interface{})
			assert.Equal(t, tt.wantTotal, first["daily_mme"])
			for _, key := range []string{"medication", "dose", "frequency", "factor"} {
				assert.Contains(t, first, key)
			}
		})
	}
}

func TestCalculate_SkipsUnknownOpioid(t *testing.T) {
	h, m, logs := newTestHandler(t)

	rec, out := post(t, h.Calculate, `{"medications":[
		{"opioid":"oxycodone","dose":10,"frequency":2},
		{"opioid":"unobtainium","dose":10,"frequency":2}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, out["total_mme"])
	assert.Len(t, out["calculations"], 1)
	assert.Equal(t, []interface{}{"unobtainium"}, out["skipped"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedEntriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationsTotal.WithLabelValues("low")))
	assert.Equal(t, 1, logs.FilterMessage("skipped unknown opioids").Len())
}

func TestCalculate_Rejections(t *testing.T) {
	h, m, _ := newTestHandler(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"medications":`, "invalid request body"},
		{"empty body", ``, "invalid request body"},
		{"empty batch", `{"medications":[]}`, "at least one medication is required"},
		{"single object on batch endpoint", `{"opioid":"morphine","dose":10}`, "at least one medication is required"},
		{"negative dose", `{"medications":[{"opioid":"morphine","dose":-10,"frequency":1}]}`, "medications[0].dose"},
		{"non numeric dose", `{"medications":[{"opioid":"morphine","dose":10},{"opioid":"morphine","dose":"ten"}]}`, "medications[1].dose"},
		{"fractional frequency", `{"medications":[{"opioid":"morphine","dose":10,"frequency":1.5}]}`, "medications[0].frequency"},
		{"negative frequency", `{"medications":[{"opioid":"morphine","dose":10,"frequency":-1}]}`, "medications[0].frequency"},
		{"boolean dose", `{"medications":[{"opioid":"morphine","dose":true}]}`, "medications[0].dose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h.Calculate, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], tt.wantErr)
		})
	}

	assert.Equal(t, 5.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("calculate", "validation")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("calculate", "request")))
}

func TestLegacyCalculate_SingleMedication(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec, out := post(t, h.LegacyCalculate, `{"opioid":"oxycodone","dose":10,"frequency":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, 30.0, out["total_mme"])
	assert.Equal(t, "oxycodone", out["opioid"])
	assert.Equal(t, 1.5, out["factor"])
	assert.Equal(t, "low", out["risk_level"])

	// frequency defaults to once daily
	_, out = post(t, h.LegacyCalculate, `{"opioid":"morphine","dose":"45"}`)
	assert.Equal(t, 45.0, out["total_mme"])
	assert.Equal(t, 1.0, out["frequency"])
}

func TestLegacyCalculate_RejectsUnknownOpioid(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec, out := post(t, h.LegacyCalculate, `{"opioid":"unobtainium","dose":10,"frequency":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Invalid opioid", out["error"])
}

func TestLegacyCalculate_AcceptsBatch(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec, out := post(t, h.LegacyCalculate, `{"medications":[
		{"opioid":"morphine","dose":30,"frequency":2},
		{"opioid":"oxycodone","dose":10,"frequency":2}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90.0, out["total_mme"])
	assert.Equal(t, "high", out["risk_level"])
	assert.Len(t, out["warnings"], 5)
}

func TestConvert(t *testing.T) {
	h, m, _ := newTestHandler(t)

	rec, out := post(t, h.Convert, `{"from_opioid":"morphine","to_opioid":"oxycodone","dose":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, 30.0, out["original_dose"])
	assert.Equal(t, 30.0, out["mme_equivalent"])
	assert.Equal(t, 20.0, out["converted_dose"])
	assert.Equal(t, 15.0, out["safe_starting_dose"])
	assert.Equal(t, mme.ConversionAdvisory, out["warning"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal))
}

func TestConvert_Rejections(t *testing.T) {
	h, m, _ := newTestHandler(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown source", `{"from_opioid":"unknown_opioid","to_opioid":"morphine","dose":10}`, "Invalid opioid selection"},
		{"unknown target", `{"from_opioid":"morphine","to_opioid":"unknown_opioid","dose":10}`, "Invalid opioid selection"},
		{"negative dose", `{"from_opioid":"morphine","to_opioid":"oxycodone","dose":-3}`, "dose"},
		{"malformed", `not json`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h.Convert, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], tt.wantErr)
		})
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConversionsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("convert", "validation")))
}

func TestListOpioids(t *testing.T) {
	h, m, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ListOpioids(rec, httptest.NewRequest(http.MethodGet, "/api/v1/opioids", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out OpioidsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Opioids, mme.DefaultTable().Len())
	assert.Equal(t, "morphine", out.Opioids[0].ID)
	assert.Equal(t, float64(mme.DefaultTable().Len()), testutil.ToFloat64(m.TableEntries))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw         string
		want        float64
		wantPresent bool
		wantOK      bool
	}{
		{``, 0, false, true},
		{`null`, 0, false, true},
		{`12.5`, 12.5, true, true},
		{`"7"`, 7, true, true},
		{`" 7.25 "`, 7.25, true, true},
		{`""`, 0, true, false},
		{`"abc"`, 0, true, false},
		{`"NaN"`, 0, true, false},
		{`"Inf"`, 0, true, false},
		{`[1]`, 0, true, false},
	}

	for _, tt := range tests {
		v, present, ok := parseNumber(json.RawMessage(tt.raw))
		assert.Equal(t, tt.wantPresent, present, tt.raw)
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		if tt.wantOK {
			assert.Equal(t, tt.want, v, tt.raw)
		}
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := parseFrequency(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f)

	f, err = parseFrequency(0, json.RawMessage(`3.0`))
	require.NoError(t, err)
	assert.Equal(t, 3, f)

	_, err = parseFrequency(2, json.RawMessage(`2.5`))
	require.Error(t, err)
	assert.ErrorIs(t, err, mme.ErrInvalidFrequency)
	assert.True(t, mme.IsValidation(err))
}

func TestOverflowingDoses(t *testing.T) {
	h, m, _ := newTestHandler(t)

	tests := []struct {
		name string
		fn   http.HandlerFunc
		body string
		op   string
	}{
		{"batch", h.Calculate, `{"medications":[{"opioid":"morphine","dose":1e307,"frequency":1}]}`, "calculate"},
		{"batch large factor", h.Calculate, `{"medications":[{"opioid":"buprenorphine","dose":1e308,"frequency":1}]}`, "calculate"},
		{"single", h.LegacyCalculate, `{"opioid":"morphine","dose":1e307,"frequency":1}`, "calculate"},
		{"convert", h.Convert, `{"from_opioid":"buprenorphine","to_opioid":"morphine","dose":1e307}`, "convert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, tt.fn, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], mme.ErrOverflow.Error())
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("calculate", "domain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("convert", "domain")))
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	h, _, logs := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]float64{"total_mme": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("encode response failed").Len())
}
