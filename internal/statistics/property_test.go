package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperty(t *testing.T) {
	tests := []struct {
		input   string
		want    Property
		wantErr bool
	}{
		{"MEAN", Mean, false},
		{"meanclip", MeanClip, false},
		{" IQRange ", IQRange, false},
		{"MEAN|STDEV|ERRORS", Mean | Stdev | Errors, false},
		{"ORMASK", OrMask, false},
		{"MODE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProperty(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProperties(t *testing.T) {
	got, err := ParseProperties([]string{"npoint", "MEDIAN", "errors"})
	require.NoError(t, err)
	assert.Equal(t, NPoint|Median|Errors, got)

	_, err = ParseProperties([]string{"MEAN", "bogus"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProperty_String(t *testing.T) {
	assert.Equal(t, "MEAN|STDEV|ERRORS", (Errors | Stdev | Mean).String())
	assert.Equal(t, "NOTHING", Property(0).String())
	assert.Equal(t, "VARIANCECLIP", VarianceClip.String())
}

func TestProperty_StringRoundTrip(t *testing.T) {
	for _, name := range PropertyNames() {
		p, err := ParseProperty(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.String())
	}
}

func TestProperty_Stats(t *testing.T) {
	p := Errors | Max | NPoint | MeanClip
	assert.Equal(t, []Property{NPoint, MeanClip, Max}, p.Stats())
	assert.Empty(t, Errors.Stats())
}

func TestProperty_Plan(t *testing.T) {
	tests := []struct {
		name  string
		props Property
		want  pass
	}{
		{"filter only", NPoint | Min | Max | OrMask, 0},
		{"moments", Mean | Sum, passMoments},
		{"order", Median | IQRange, passSort},
		{"clip", StdevClip, passMoments | passClip},
		{"mixed", Mean | Median, passMoments | passSort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.props.plan())
		})
	}
}

func TestHasAnalyticError(t *testing.T) {
	for _, p := range []Property{Mean, Stdev, Variance, Median, MeanClip, StdevClip, VarianceClip} {
		assert.True(t, HasAnalyticError(p), p.String())
	}
	for _, p := range []Property{NPoint, Min, Max, Sum, IQRange, MeanSquare, OrMask} {
		assert.False(t, HasAnalyticError(p), p.String())
	}
}

func TestProperty_Has(t *testing.T) {
	p := Mean | Errors
	assert.True(t, p.Has(Errors))
	assert.True(t, p.Has(Mean|Errors))
	assert.False(t, p.Has(Mean|Stdev))
	assert.False(t, p.Has(0))
}
