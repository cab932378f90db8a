package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.NoError(t, p.Validate())
	assert.Equal(t, 127, p.MinHistory())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"quarter not shorter than half year", func(p *Params) { p.QuarterWindow = 126 }},
		{"tiny window", func(p *Params) { p.QuarterWindow = 1 }},
		{"empty quarterly band", func(p *Params) { p.QuarterlyMin = 90 }},
		{"empty semiannual band", func(p *Params) { p.SemiannualMax = 10 }},
		{"negative cap floor", func(p *Params) { p.MinMarketCap = -1 }},
		{"short-term window", func(p *Params) { p.ShortTermWindow = 1 }},
		{"drawdown window", func(p *Params) { p.DrawdownWindow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
