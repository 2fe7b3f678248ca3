package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/banshi/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestContextAdjuster_Adjust(t *testing.T) {
	a := NewContextAdjuster(DefaultRankingConfig())

	tests := []struct {
		name   string
		rec    models.ServiceRecord
		qctx   models.QueryContext
		want   float64
		wantOK bool
	}{
		{
			name:   "no context",
			rec:    models.ServiceRecord{Applicant: models.ApplicantCitizen, Region: "株洲市"},
			want:   100,
			wantOK: true,
		},
		{
			name:   "channel filter removes record",
			rec:    models.ServiceRecord{Channels: []string{"Android", "PC端"}},
			qctx:   models.QueryContext{Channel: "微信小程序"},
			wantOK: false,
		},
		{
			name:   "channel match ignores case",
			rec:    models.ServiceRecord{Channels: []string{"IOS"}},
			qctx:   models.QueryContext{Channel: "ios"},
			want:   100,
			wantOK: true,
		},
		{
			name:   "channel all disables filter",
			rec:    models.ServiceRecord{},
			qctx:   models.QueryContext{Channel: "全部"},
			want:   100,
			wantOK: true,
		},
		{
			name:   "applicant match",
			rec:    models.ServiceRecord{Applicant: models.ApplicantCitizen},
			qctx:   models.QueryContext{Applicant: models.ApplicantCitizen},
			want:   120,
			wantOK: true,
		},
		{
			name:   "applicant mismatch is soft",
			rec:    models.ServiceRecord{Applicant: models.ApplicantLegalEntity},
			qctx:   models.QueryContext{Applicant: models.ApplicantCitizen},
			want:   80,
			wantOK: true,
		},
		{
			name:   "unknown record applicant is neutral",
			rec:    models.ServiceRecord{Applicant: models.ApplicantUnknown},
			qctx:   models.QueryContext{Applicant: models.ApplicantLegalEntity},
			want:   100,
			wantOK: true,
		},
		{
			name:   "region match",
			rec:    models.ServiceRecord{Region: "长沙市"},
			qctx:   models.QueryContext{Region: "长沙"},
			want:   120,
			wantOK: true,
		},
		{
			name:   "province-wide record",
			rec:    models.ServiceRecord{Region: "湖南省本级"},
			qctx:   models.QueryContext{Region: "长沙"},
			want:   105,
			wantOK: true,
		},
		{
			name:   "other prefecture",
			rec:    models.ServiceRecord{Region: "株洲市"},
			qctx:   models.QueryContext{Region: "长沙"},
			want:   50,
			wantOK: true,
		},
		{
			name:   "region all disables adjustment",
			rec:    models.ServiceRecord{Region: "株洲市"},
			qctx:   models.QueryContext{Region: "全省"},
			want:   100,
			wantOK: true,
		},
		{
			name:   "high frequency",
			rec:    models.ServiceRecord{HighFrequency: true},
			want:   110,
			wantOK: true,
		},
		{
			name:   "satisfaction weighted",
			rec:    models.ServiceRecord{Satisfaction: floatPtr(9.5)},
			qctx:   models.QueryContext{SatisfactionWeighted: true},
			want:   119,
			wantOK: true,
		},
		{
			name:   "satisfaction ignored when not weighted",
			rec:    models.ServiceRecord{Satisfaction: floatPtr(9.5)},
			want:   100,
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.Adjust(100, &tt.rec, tt.qctx, nil)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestContextAdjuster_Popularity(t *testing.T) {
	config := DefaultRankingConfig()

	assert.Equal(t, 0.0, CalculatePopularity(0, config))
	assert.Equal(t, 0.0, CalculatePopularity(-10, config))
	assert.InDelta(t, 24.0, CalculatePopularity(999, config), 1e-9)
	assert.InDelta(t, math.Log10(5000001)*8, CalculatePopularity(5000000, config), 1e-9)

	// Logarithmic: a thousandfold visit increase adds only 24 points.
	diff := CalculatePopularity(999999, config) - CalculatePopularity(999, config)
	assert.InDelta(t, 24.0, diff, 1e-6)
}

func TestContextAdjuster_Breakdown(t *testing.T) {
	a := NewContextAdjuster(DefaultRankingConfig())
	rec := models.ServiceRecord{
		Applicant:     models.ApplicantLegalEntity,
		Region:        "全省通用",
		HighFrequency: true,
		Satisfaction:  floatPtr(8),
		Visits:        99,
	}
	qctx := models.QueryContext{
		Applicant:            models.ApplicantLegalEntity,
		Region:               "岳阳",
		SatisfactionWeighted: true,
	}

	var bd models.ScoreBreakdown
	got, ok := a.Adjust(60, &rec, qctx, &bd)
	assert.True(t, ok)
	assert.Equal(t, 20.0, bd.Applicant)
	assert.Equal(t, 5.0, bd.Region)
	assert.InDelta(t, 16.0, bd.Popularity, 1e-9)
	assert.Equal(t, 10.0, bd.HighFreq)
	assert.Equal(t, 16.0, bd.Satisfaction)
	assert.InDelta(t, 127.0, got, 1e-9)
}

func TestContextAdjuster_IsProvinceWide(t *testing.T) {
	a := NewContextAdjuster(DefaultRankingConfig())
	assert.True(t, a.IsProvinceWide("全省通用"))
	assert.True(t, a.IsProvinceWide("湖南省本级"))
	assert.False(t, a.IsProvinceWide("长沙市"))
	assert.False(t, a.IsProvinceWide(""))
}
