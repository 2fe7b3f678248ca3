package ranking

import "gopkg.in/yaml.v3"

// RankingConfig holds all weights and thresholds for relevance scoring and context adjustment.
// The defaults are the contractual values; overriding them is only meant for
// reproducing earlier ranking behaviour.
//
// A config decoded from YAML starts from the defaults, so keys left out keep
// their default and an explicit 0 switches a signal off. A config built in Go
// has every zero weight replaced by its default in ApplyDefaults.
type RankingConfig struct {
	// Relevance signals
	ContainmentScore    float64 `yaml:"containment_score"`     // default: 100
	PrefixBonus         float64 `yaml:"prefix_bonus"`          // default: 30
	ExactNameBonus      float64 `yaml:"exact_name_bonus"`      // default: 50
	SynonymScore        float64 `yaml:"synonym_score"`         // default: 60
	CoverageThreshold   float64 `yaml:"coverage_threshold"`    // default: 0.6 (exclusive)
	CoverageWeight      float64 `yaml:"coverage_weight"`       // default: 40
	BrowseBaselineScore float64 `yaml:"browse_baseline_score"` // default: 100

	// Context adjustments
	ApplicantMatchBonus      float64 `yaml:"applicant_match_bonus"`      // default: 20
	ApplicantMismatchPenalty float64 `yaml:"applicant_mismatch_penalty"` // default: 20
	RegionMatchBonus         float64 `yaml:"region_match_bonus"`         // default: 20
	ProvinceWideBonus        float64 `yaml:"province_wide_bonus"`        // default: 5
	RegionMismatchPenalty    float64 `yaml:"region_mismatch_penalty"`    // default: 50
	PopularityWeight         float64 `yaml:"popularity_weight"`          // default: 8
	HighFrequencyBonus       float64 `yaml:"high_frequency_bonus"`       // default: 10
	SatisfactionWeight       float64 `yaml:"satisfaction_weight"`        // default: 2

	// ProvinceWideMarkers are substrings of a record's region that mark it as valid province-wide.
	ProvinceWideMarkers []string `yaml:"province_wide_markers"`
	// StopParticles are stripped from queries before matching.
	StopParticles []string `yaml:"stop_particles"`
	// ResultCap bounds the number of ranked results.
	ResultCap int `yaml:"result_cap"` // default: 100

	// decoded is set when the weights came from YAML and zeros are deliberate.
	decoded bool
}

// UnmarshalYAML decodes the ranking section on top of the default values.
func (c *RankingConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain RankingConfig
	p := plain(*DefaultRankingConfig())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = RankingConfig(p)
	c.decoded = true
	return nil
}

// DefaultStopParticles are the semantically empty particles removed from queries.
var DefaultStopParticles = []string{"我要", "办理", "怎么", "查询", "了", "是", "的", "吗", "想"}

// DefaultProvinceWideMarkers match "全省通用", "全省" and "湖南省本级".
var DefaultProvinceWideMarkers = []string{"全省", "省本级"}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		ContainmentScore:    100,
		PrefixBonus:         30,
		ExactNameBonus:      50,
		SynonymScore:        60,
		CoverageThreshold:   0.6,
		CoverageWeight:      40,
		BrowseBaselineScore: 100,

		ApplicantMatchBonus:      20,
		ApplicantMismatchPenalty: 20,
		RegionMatchBonus:         20,
		ProvinceWideBonus:        5,
		RegionMismatchPenalty:    50,
		PopularityWeight:         8,
		HighFrequencyBonus:       10,
		SatisfactionWeight:       2,

		ProvinceWideMarkers: append([]string(nil), DefaultProvinceWideMarkers...),
		StopParticles:       append([]string(nil), DefaultStopParticles...),
		ResultCap:           100,
	}
}

// ApplyDefaults fills in zero values with defaults. Weights decoded from YAML
// are left as they are; the marker lists and the result cap are always filled.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if len(c.ProvinceWideMarkers) == 0 {
		c.ProvinceWideMarkers = defaults.ProvinceWideMarkers
	}
	if len(c.StopParticles) == 0 {
		c.StopParticles = defaults.StopParticles
	}
	if c.ResultCap == 0 {
		c.ResultCap = defaults.ResultCap
	}
	if c.decoded {
		return
	}

	// Relevance
	if c.ContainmentScore == 0 {
		c.ContainmentScore = defaults.ContainmentScore
	}
	if c.PrefixBonus == 0 {
		c.PrefixBonus = defaults.PrefixBonus
	}
	if c.ExactNameBonus == 0 {
		c.ExactNameBonus = defaults.ExactNameBonus
	}
	if c.SynonymScore == 0 {
		c.SynonymScore = defaults.SynonymScore
	}
	if c.CoverageThreshold == 0 {
		c.CoverageThreshold = defaults.CoverageThreshold
	}
	if c.CoverageWeight == 0 {
		c.CoverageWeight = defaults.CoverageWeight
	}
	if c.BrowseBaselineScore == 0 {
		c.BrowseBaselineScore = defaults.BrowseBaselineScore
	}

	// Context
	if c.ApplicantMatchBonus == 0 {
		c.ApplicantMatchBonus = defaults.ApplicantMatchBonus
	}
	if c.ApplicantMismatchPenalty == 0 {
		c.ApplicantMismatchPenalty = defaults.ApplicantMismatchPenalty
	}
	if c.RegionMatchBonus == 0 {
		c.RegionMatchBonus = defaults.RegionMatchBonus
	}
	if c.ProvinceWideBonus == 0 {
		c.ProvinceWideBonus = defaults.ProvinceWideBonus
	}
	if c.RegionMismatchPenalty == 0 {
		c.RegionMismatchPenalty = defaults.RegionMismatchPenalty
	}
	if c.PopularityWeight == 0 {
		c.PopularityWeight = defaults.PopularityWeight
	}
	if c.HighFrequencyBonus == 0 {
		c.HighFrequencyBonus = defaults.HighFrequencyBonus
	}
	if c.SatisfactionWeight == 0 {
		c.SatisfactionWeight = defaults.SatisfactionWeight
	}
}
