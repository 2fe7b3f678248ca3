package ranking

import (
	"math"
	"strings"

	"github.com/hyperjump/banshi/internal/models"
)

// ContextAdjuster applies applicant, region, channel, popularity, and satisfaction
// adjustments on top of a relevance score.
type ContextAdjuster struct {
	config *RankingConfig
}

// NewContextAdjuster creates a new ContextAdjuster.
func NewContextAdjuster(config *RankingConfig) *ContextAdjuster {
	return &ContextAdjuster{config: config}
}

// Name returns the adjuster name.
func (a *ContextAdjuster) Name() string {
	return "context"
}

// Adjust returns the adjusted score, or false when the record is removed by the channel filter.
// bd, when non-nil, receives the individual adjustments.
func (a *ContextAdjuster) Adjust(base float64, rec *models.ServiceRecord, qctx models.QueryContext, bd *models.ScoreBreakdown) (float64, bool) {
	if bd == nil {
		bd = &models.ScoreBreakdown{}
	}
	if channel := qctx.ChannelFilter(); channel != "" && !rec.HasChannel(channel) {
		return 0, false
	}

	bd.Applicant = a.applicantAdjustment(rec, qctx.ApplicantFilter())
	bd.Region = a.regionAdjustment(rec, qctx.RegionFilter())
	bd.Popularity = a.popularity(rec.Visits)
	if rec.HighFrequency {
		bd.HighFreq = a.config.HighFrequencyBonus
	}
	if qctx.SatisfactionWeighted && rec.Satisfaction != nil {
		bd.Satisfaction = *rec.Satisfaction * a.config.SatisfactionWeight
	}

	return base + bd.Applicant + bd.Region + bd.Popularity + bd.HighFreq + bd.Satisfaction, true
}

// applicantAdjustment is a soft signal: mismatching records stay eligible.
// Records with an unknown applicant are neither rewarded nor penalized.
func (a *ContextAdjuster) applicantAdjustment(rec *models.ServiceRecord, want models.ApplicantType) float64 {
	if want == models.ApplicantAll {
		return 0
	}
	switch rec.Applicant {
	case want:
		return a.config.ApplicantMatchBonus
	case models.ApplicantCitizen, models.ApplicantLegalEntity:
		return -a.config.ApplicantMismatchPenalty
	default:
		return 0
	}
}

func (a *ContextAdjuster) regionAdjustment(rec *models.ServiceRecord, region string) float64 {
	if region == "" {
		return 0
	}
	if strings.Contains(rec.Region, region) {
		return a.config.RegionMatchBonus
	}
	if a.IsProvinceWide(rec.Region) {
		return a.config.ProvinceWideBonus
	}
	return -a.config.RegionMismatchPenalty
}

// IsProvinceWide reports whether region carries one of the province-wide markers.
func (a *ContextAdjuster) IsProvinceWide(region string) bool {
	for _, m := range a.config.ProvinceWideMarkers {
		if m != "" && strings.Contains(region, m) {
			return true
		}
	}
	return false
}

// popularity compresses visit counts logarithmically so it can only break ties.
func (a *ContextAdjuster) popularity(visits int64) float64 {
	if visits <= 0 {
		return 0
	}
	return math.Log10(float64(visits)+1) * a.config.PopularityWeight
}

// CalculatePopularity is a standalone helper returning the popularity contribution for visits.
func CalculatePopularity(visits int64, config *RankingConfig) float64 {
	return NewContextAdjuster(config).popularity(visits)
}
