package mme

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert_MorphineToOxycodone(t *testing.T) {
	conv := NewConverter(nil)

	res, err := conv.Convert("morphine", "oxycodone", 30)
	require.NoError(t, err)

	assert.Equal(t, 30.0, res.OriginalDose)
	assert.Equal(t, 30.0, res.MMEEquivalent)
	assert.Equal(t, 20.0, res.ConvertedDose)
	assert.Equal(t, 15.0, res.SafeStartingDose)
	assert.Equal(t, ConversionAdvisory, res.Warning)
	assert.Contains(t, res.Warning, "25-50%")
}

func TestConverter_Convert_UnknownOpioid(t *testing.T) {
	conv := NewConverter(nil)

	tests := []struct {
		name      string
		from, to  string
		wantField string
	}{
		{"unknown source", "unknown_opioid", "morphine", "from_opioid"},
		{"unknown target", "morphine", "unknown_opioid", "to_opioid"},
		{"both unknown", "a", "b", "from_opioid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conv.Convert(tt.from, tt.to, 10)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrUnknownOpioid)
			assert.True(t, IsValidation(err))

			var mmeErr *Error
			require.True(t, errors.As(err, &mmeErr))
			assert.Equal(t, tt.wantField, mmeErr.Field)
			assert.Equal(t, -1, mmeErr.Index)
		})
	}
}

func TestConverter_Convert_NegativeDose(t *testing.T) {
	_, err := NewConverter(nil).Convert("morphine", "oxycodone", -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDose)
	assert.True(t, IsValidation(err))
}

func TestConverter_Convert_ZeroTargetFactor(t *testing.T) {
	table := newTable(append(builtinEntries(), Entry{ID: "inert", Factor: 0}))
	conv := NewConverter(table)

	_, err := conv.Convert("morphine", "inert", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroFactor)
	assert.True(t, IsDomain(err))
	assert.False(t, IsValidation(err))

	// zero factor as the source is fine: it just yields zero MME
	res, err := conv.Convert("inert", "morphine", 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.MMEEquivalent)
}

func TestConverter_Convert_Overflow(t *testing.T) {
	conv := NewConverter(nil)

	for _, pair := range [][2]string{{"buprenorphine", "morphine"}, {"morphine", "buprenorphine"}} {
		res, err := conv.Convert(pair[0], pair[1], 1e307)
		require.Error(t, err, pair)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrOverflow)
		assert.True(t, IsDomain(err))
		assert.Contains(t, err.Error(), "dose")
	}
}

func TestConverter_Convert_SafeDoseIsThreeQuartersOfConverted(t *testing.T) {
	conv := NewConverter(nil)
	entries := DefaultTable().Entries()

	for _, from := range entries {
		for _, to := range entries {
			res, err := conv.Convert(from.ID, to.ID, 40)
			require.NoError(t, err)

			converted := 40 * from.Factor / to.Factor
			assert.Equal(t, Round2(converted), res.ConvertedDose, "%s -> %s", from.ID, to.ID)
			assert.Equal(t, Round2(converted*SafetyFactor), res.SafeStartingDose, "%s -> %s", from.ID, to.ID)
			assert.LessOrEqual(t, res.SafeStartingDose, res.ConvertedDose)
		}
	}
}

func TestConverter_Convert_RoundTrip(t *testing.T) {
	conv := NewConverter(nil)
	entries := DefaultTable().Entries()

	for _, a := range entries {
		for _, b := range entries {
			there, err := conv.Convert(a.ID, b.ID, 30)
			require.NoError(t, err)
			back, err := conv.Convert(b.ID, a.ID, there.ConvertedDose)
			require.NoError(t, err)

			// each output is rounded to 0.01 and the intermediate dose is
			// scaled by b's factor on the way back
			assert.InDelta(t, there.MMEEquivalent, back.MMEEquivalent, 0.01+0.005*b.Factor+1e-9,
				"%s -> %s -> %s", a.ID, b.ID, a.ID)
		}
	}
}

func TestConverter_Convert_RoundTripUnrounded(t *testing.T) {
	for _, a := range DefaultTable().Entries() {
		for _, b := range DefaultTable().Entries() {
			dose := 30.0
			mme := dose * a.Factor
			back := (mme / b.Factor) * b.Factor / a.Factor
			assert.InDelta(t, dose, back, 1e-9, "%s <-> %s", a.ID, b.ID)
		}
	}
}
