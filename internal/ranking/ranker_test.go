package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/models"
)

// rankAll scores every record the way a search turn does and returns the ranked names.
func rankAll(r *Ranker, records []models.ServiceRecord, raw string, intent models.AnalyzedIntent, qctx models.QueryContext) []string {
	snap := catalog.NewSnapshot(records, 1, "test")
	query := r.Normalize(raw)
	expansions := r.ExpansionTerms(query, intent)

	scored := make([]ScoredRecord, len(snap.Entries))
	for i := range snap.Entries {
		e := &snap.Entries[i]
		scored[i] = r.Score(i, &e.Record, e.Digest, query, expansions, qctx, false)
	}

	ranked := r.Rank(scored, 0)
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.Record.Name
	}
	return names
}

func TestNewRanker(t *testing.T) {
	ranker := NewRanker(nil)
	require.NotNil(t, ranker)
	assert.Equal(t, 100, ranker.GetConfig().ResultCap)

	// Zero values are filled from defaults, overrides survive.
	ranker = NewRanker(&RankingConfig{RegionMismatchPenalty: 30})
	assert.Equal(t, 30.0, ranker.GetConfig().RegionMismatchPenalty)
	assert.Equal(t, 100.0, ranker.GetConfig().ContainmentScore)
}

func TestRanker_ExpiredIDCardScenario(t *testing.T) {
	ranker := NewRanker(nil)
	names := rankAll(ranker, catalog.DefaultRecords(), "身份证到期了", models.EmptyIntent(), models.QueryContext{})

	require.NotEmpty(t, names)
	assert.Equal(t, "居民身份证到期换领", names[0])
	assert.NotContains(t, names, "居民身份证损坏换领")
}

func TestRanker_ExactMatchDominatesPopularity(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "长沙住房公积金提取办理指南", Visits: 5000000, HighFrequency: true},
		{Name: "公积金提取"},
	}
	names := rankAll(ranker, records, "公积金提取", models.EmptyIntent(), models.QueryContext{})
	assert.Equal(t, []string{"公积金提取", "长沙住房公积金提取办理指南"}, names)
}

func TestRanker_RelevanceGate(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "医保报销", Visits: 10000000, HighFrequency: true},
		{Name: "公积金贷款"},
	}
	names := rankAll(ranker, records, "公积金", models.EmptyIntent(), models.QueryContext{})
	assert.Equal(t, []string{"公积金贷款"}, names)
}

func TestRanker_ChannelIsHardFilter(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "公积金提取", Channels: []string{"Android"}},
		{Name: "衡阳公积金提取", Channels: []string{"微信小程序"}},
	}
	qctx := models.QueryContext{Channel: "微信小程序"}
	names := rankAll(ranker, records, "公积金提取", models.EmptyIntent(), qctx)
	assert.Equal(t, []string{"衡阳公积金提取"}, names)
}

func TestRanker_RegionIsSoftPenalty(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "长沙住房公积金提取", Region: "长沙市"},
		{Name: "公积金提取", Region: "株洲市"},
	}
	qctx := models.QueryContext{Region: "长沙"}
	names := rankAll(ranker, records, "公积金提取", models.EmptyIntent(), qctx)

	// 220-50 for the exact name still beats 140+20 for the local record.
	assert.Equal(t, []string{"公积金提取", "长沙住房公积金提取"}, names)
}

func TestRanker_ApplicantIsSoftSignal(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "失业登记", Applicant: models.ApplicantCitizen},
		{Name: "企业登记", Applicant: models.ApplicantLegalEntity},
	}
	qctx := models.QueryContext{Applicant: models.ApplicantLegalEntity}
	names := rankAll(ranker, records, "登记", models.EmptyIntent(), qctx)
	assert.Equal(t, []string{"企业登记", "失业登记"}, names)
}

func TestRanker_BrowseOrdersByPopularity(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Name: "税务注销", Visits: 10},
		{Name: "社保卡挂失", Visits: 100, HighFrequency: true},
		{Name: "医保报销", Visits: 1000},
		{Name: "发票申领", Visits: 100},
	}
	for _, raw := range []string{"", "  ", "的了吗"} {
		names := rankAll(ranker, records, raw, models.EmptyIntent(), models.QueryContext{})
		assert.Equal(t, []string{"医保报销", "社保卡挂失", "发票申领", "税务注销"}, names, "query %q", raw)
	}
}

func TestRanker_BrowseIgnoresHighFrequency(t *testing.T) {
	ranker := NewRanker(nil)
	rec := &models.ServiceRecord{Name: "社保卡挂失", Visits: 100, HighFrequency: true}

	browse := ranker.Score(0, rec, "社保卡挂失", "", nil, models.QueryContext{}, true)
	require.NotNil(t, browse.Breakdown)
	assert.Zero(t, browse.Breakdown.HighFreq)
	assert.InDelta(t, 100+CalculatePopularity(100, ranker.GetConfig()), browse.Score, 1e-9)

	query := ranker.Score(0, rec, "社保卡挂失", "社保卡", nil, models.QueryContext{}, true)
	require.NotNil(t, query.Breakdown)
	assert.Equal(t, 10.0, query.Breakdown.HighFreq, "the bonus still applies to real queries")
}

func TestRanker_IntentExpansion(t *testing.T) {
	ranker := NewRanker(nil)
	records := catalog.DefaultRecords()

	names := rankAll(ranker, records, "生孩子", models.EmptyIntent(), models.QueryContext{})
	assert.Empty(t, names)

	intent := models.EmptyIntent()
	intent.Keywords = []string{"生孩子"}
	intent.Synonyms = []string{"生育登记", "新生儿"}
	names = rankAll(ranker, records, "生孩子", intent, models.QueryContext{})
	assert.Contains(t, names, "生育登记")
	assert.Contains(t, names, "新生儿出生一件事")
	assert.Contains(t, names, "邵阳新生儿重名查询")
}

func TestRanker_TiesKeepCatalogOrder(t *testing.T) {
	ranker := NewRanker(nil)
	records := []models.ServiceRecord{
		{Code: "a", Name: "不动产登记"},
		{Code: "b", Name: "不动产登记"},
		{Code: "c", Name: "不动产登记"},
	}
	snap := catalog.NewSnapshot(records, 1, "")
	scored := make([]ScoredRecord, len(snap.Entries))
	for i := range snap.Entries {
		e := &snap.Entries[i]
		scored[i] = ranker.Score(i, &e.Record, e.Digest, "不动产", nil, models.QueryContext{}, false)
	}

	ranked := ranker.Rank(scored, 0)
	require.Len(t, ranked, 3)
	for i, code := range []string{"a", "b", "c"} {
		assert.Equal(t, code, ranked[i].Record.Code)
	}
}

func TestRanker_Deterministic(t *testing.T) {
	ranker := NewRanker(nil)
	records := catalog.DefaultRecords()
	qctx := models.QueryContext{Region: "怀化", SatisfactionWeighted: true}

	first := rankAll(ranker, records, "查询", models.EmptyIntent(), qctx)
	second := rankAll(ranker, records, "查询", models.EmptyIntent(), qctx)
	assert.Equal(t, first, second)
}

func TestRanker_RankLimit(t *testing.T) {
	ranker := NewRanker(&RankingConfig{ResultCap: 2})
	scored := []ScoredRecord{
		{Record: &models.ServiceRecord{Name: "a"}, Score: 10, Index: 0},
		{Record: &models.ServiceRecord{Name: "b"}, Score: 30, Index: 1},
		{Record: &models.ServiceRecord{Name: "c"}, Score: 20, Index: 2},
		{Record: &models.ServiceRecord{Name: "d"}, Score: -5, Index: 3},
		{Record: &models.ServiceRecord{Name: "e"}, Score: 50, Index: 4, Filtered: true},
	}

	assert.Len(t, ranker.Rank(scored, 0), 2)
	assert.Len(t, ranker.Rank(scored, 10), 2)

	ranked := ranker.Rank(scored, 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "b", ranked[0].Record.Name)

	records := ranker.RankRecords(scored, 0)
	assert.Equal(t, "b", records[0].Name)
	assert.Equal(t, "c", records[1].Name)
}

func TestRanker_ScoreExplain(t *testing.T) {
	ranker := NewRanker(nil)
	rec := &models.ServiceRecord{Name: "医保报销", HighFrequency: true}

	plain := ranker.Score(0, rec, "医保报销", "医保报销", nil, models.QueryContext{}, false)
	assert.Nil(t, plain.Breakdown)

	explained := ranker.Score(0, rec, "医保报销", "医保报销", nil, models.QueryContext{}, true)
	require.NotNil(t, explained.Breakdown)
	assert.Equal(t, 50.0, explained.Breakdown.ExactName)
	assert.Equal(t, 10.0, explained.Breakdown.HighFreq)
	assert.InDelta(t, 230.0, explained.Score, 1e-9)
}
