package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestMomentum(t *testing.T) {
	tests := []struct {
		name      string
		last      string
		prevClose string
		want      string
	}{
		{"up two percent", "102", "100", "2"},
		{"down", "98", "100", "-2"},
		{"flat", "100", "100", "0"},
		{"zero prev close", "100", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Momentum(dec(tt.last), dec(tt.prevClose))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Momentum(%s, %s) = %s, want %s", tt.last, tt.prevClose, got, tt.want)
			}
		})
	}
}

func TestPivotLevels(t *testing.T) {
	levels := PivotLevels(dec("110"), dec("90"), dec("100"))

	if !levels.Pivot.Equal(dec("100")) {
		t.Errorf("pivot = %s, want 100", levels.Pivot)
	}
	if !levels.Support.Equal(dec("90")) {
		t.Errorf("support = %s, want 90", levels.Support)
	}
	if !levels.Resistance.Equal(dec("110")) {
		t.Errorf("resistance = %s, want 110", levels.Resistance)
	}
}

func TestTrendLabel(t *testing.T) {
	tests := []struct {
		name      string
		momentums []float64
		want      string
	}{
		{"empty", nil, TrendNeutral},
		{"uniform up", []float64{1.2, 1.1, 0.9, 1.0}, TrendBullish},
		{"uniform down", []float64{-1.2, -1.0, -0.8}, TrendBearish},
		{"mixed", []float64{0.05, -0.1, 0.02}, TrendNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendLabel(tt.momentums); got != tt.want {
				t.Errorf("TrendLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBreadth(t *testing.T) {
	adv, dec := Breadth([]float64{1.0, -0.5, 0.3, 0, -0.2})
	if adv != 2 || dec != 2 {
		t.Errorf("Breadth = (%d, %d), want (2, 2)", adv, dec)
	}
}

func TestRegimeLabel(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{10, RegimeCalm},
		{15, RegimeNormal},
		{25, RegimeElevated},
		{35, RegimePanic},
		{0, RegimeNormal},
	}

	for _, tt := range tests {
		if got := RegimeLabel(tt.level); got != tt.want {
			t.Errorf("RegimeLabel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
