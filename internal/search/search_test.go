package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/ranking"
)

func recordNames(records []models.ServiceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestSearch_ExpiredIDCard(t *testing.T) {
	records := []models.ServiceRecord{
		{Name: "居民身份证损坏换领"},
		{Name: "居民身份证到期换领"},
	}
	got := Search(context.Background(), "身份证到期了", records, models.QueryContext{}, nil)
	require.NotEmpty(t, got)
	assert.Equal(t, "居民身份证到期换领", got[0].Name)
}

func TestSearch_DegradedEqualsLiteral(t *testing.T) {
	records := catalog.DefaultRecords()
	qctx := models.QueryContext{Region: "长沙"}

	literal := Search(context.Background(), "公积金查询", records, qctx, nil)
	for _, reason := range []intent.DegradedReason{intent.NoCredentials, intent.Transport, intent.Unparseable} {
		degraded := intent.ClassifierFunc(func(context.Context, string) intent.Result {
			return intent.Degraded(reason)
		})
		got := Search(context.Background(), "公积金查询", records, qctx, degraded)
		assert.Equal(t, recordNames(literal), recordNames(got), "reason %s", reason)
	}
	assert.NotEmpty(t, literal)
}

func TestSearch_SemanticExpansion(t *testing.T) {
	records := catalog.DefaultRecords()
	classifier := intent.ClassifierFunc(func(context.Context, string) intent.Result {
		in := models.EmptyIntent()
		in.Keywords = []string{"生孩子"}
		in.Synonyms = []string{"生育登记", "出生医学证明"}
		return intent.Succeeded(in)
	})

	assert.Empty(t, Search(context.Background(), "生孩子", records, models.QueryContext{}, nil))

	got := recordNames(Search(context.Background(), "生孩子", records, models.QueryContext{}, classifier))
	assert.ElementsMatch(t, []string{"生育登记", "出生医学证明办理"}, got)
}

func TestSearch_AdoptingIntent(t *testing.T) {
	records := []models.ServiceRecord{
		{Name: "公积金提取", Region: catalog.DefaultRegion},
		{Name: "衡阳公积金提取", Region: "衡阳市"},
		{Name: "郴州公积金提取", Region: "郴州市"},
	}
	classifier := intent.ClassifierFunc(func(context.Context, string) intent.Result {
		in := models.EmptyIntent()
		in.Location = "郴州"
		return intent.Succeeded(in)
	})

	without := recordNames(Search(context.Background(), "公积金提取", records, models.QueryContext{}, classifier))
	assert.Equal(t, []string{"公积金提取", "衡阳公积金提取", "郴州公积金提取"}, without)

	with := recordNames(Search(context.Background(), "公积金提取", records, models.QueryContext{}, classifier, AdoptingIntent()))
	// 220+5 for the province-wide record, 140+20 local, 140-50 elsewhere.
	assert.Equal(t, []string{"公积金提取", "郴州公积金提取", "衡阳公积金提取"}, with)
}

func TestSearch_LimitAndRanker(t *testing.T) {
	records := catalog.DefaultRecords()
	got := Search(context.Background(), "", records, models.QueryContext{}, nil, Limit(5))
	assert.Len(t, got, 5)

	capped := ranking.NewRanker(&ranking.RankingConfig{ResultCap: 3})
	got = Search(context.Background(), "", records, models.QueryContext{}, nil, UsingRanker(capped), Limit(50))
	assert.Len(t, got, 3)

	got = Search(context.Background(), "", records, models.QueryContext{}, nil)
	assert.Len(t, got, 88)
}

func TestSearch_BrowseSortsByVisits(t *testing.T) {
	records := []models.ServiceRecord{
		{Code: "A", Name: "社保卡挂失", Visits: 100, HighFrequency: true},
		{Code: "B", Name: "医保报销", Visits: 1000},
	}
	got := Search(context.Background(), "", records, models.QueryContext{}, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Code)
	assert.Equal(t, "A", got[1].Code)
}

func TestSearch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := Search(ctx, "医保", catalog.DefaultRecords(), models.QueryContext{}, nil)
	assert.Nil(t, got)
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	records := []models.ServiceRecord{{Name: "医保报销", Visits: -1, Channels: []string{"IOS"}}}
	got := Search(context.Background(), "医保", records, models.QueryContext{}, nil)
	require.Len(t, got, 1)
	got[0].Channels[0] = "changed"
	assert.Equal(t, int64(-1), records[0].Visits)
	assert.Equal(t, "IOS", records[0].Channels[0])
}
