package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreSafety(t *testing.T) {
	tests := []struct {
		name      string
		police    int
		hospitals int
		crime     int
		wantScore int
		wantRisk  RiskLabel
	}{
		{"remote and peaceful", 0, 0, 0, 80, RiskSafe},
		{"served with some crime", 2, 1, 5, 80, RiskSafe},
		{"unserved with heavy crime", 0, 0, 10, 35, RiskHigh},
		{"clamped at the floor", 0, 0, 25, 10, RiskHigh},
		{"clamped at the ceiling", 10, 10, 0, 100, RiskSafe},
		{"police only", 1, 0, 0, 84, RiskSafe},
		{"no police, low crime", 0, 1, 2, 76, RiskModerate},
		{"no police, crime above three", 0, 1, 4, 60, RiskModerate},
		{"no services, moderate crime", 0, 0, 5, 50, RiskCaution},
		{"bonuses cap", 5, 8, 20, 50, RiskCaution},
		{"negative counts read as zero", -1, -3, -2, 80, RiskSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreSafety(tt.police, tt.hospitals, tt.crime)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantRisk, got.Risk)
		})
	}
}

func TestScoreSafety_Bounds(t *testing.T) {
	for police := range 8 {
		for hospitals := range 8 {
			for crime := range 30 {
				s := ScoreSafety(police, hospitals, crime).Score
				assert.GreaterOrEqual(t, s, 10)
				assert.LessOrEqual(t, s, 100)
			}
		}
	}
}

func TestScoreSafety_Monotonic(t *testing.T) {
	for police := range 6 {
		for hospitals := range 6 {
			for crime := range 25 {
				base := ScoreSafety(police, hospitals, crime).Score
				assert.LessOrEqual(t, ScoreSafety(police, hospitals, crime+1).Score, base,
					"more crime raised score at (%d,%d,%d)", police, hospitals, crime)
			}
		}
	}
}

func TestRiskLabel(t *testing.T) {
	assert.Equal(t, RiskSafe, riskLabel(80))
	assert.Equal(t, RiskModerate, riskLabel(79))
	assert.Equal(t, RiskModerate, riskLabel(60))
	assert.Equal(t, RiskCaution, riskLabel(59))
	assert.Equal(t, RiskCaution, riskLabel(40))
	assert.Equal(t, RiskHigh, riskLabel(39))
}
