package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/banshi/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantOK       bool
		wantKeywords []string
		wantSynonyms []string
		wantTarget   models.ApplicantType
		wantLocation string
	}{
		{
			name:         "plain json",
			content:      `{"keywords":["生孩子"],"synonyms":["生育登记","出生医学证明"],"target_user":"自然人","location":null,"intent_category":"办理"}`,
			wantOK:       true,
			wantKeywords: []string{"生孩子"},
			wantSynonyms: []string{"生育登记", "出生医学证明"},
			wantTarget:   models.ApplicantCitizen,
		},
		{
			name:         "wrapped in prose",
			content:      `好的，结果如下：{"keywords":["营业执照"],"target_user":"法人","location":"长沙市"} 希望有帮助`,
			wantOK:       true,
			wantKeywords: []string{"营业执照"},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantLegalEntity,
			wantLocation: "长沙市",
		},
		{
			name:         "code fence",
			content:      "```json\n{\"keywords\":[\"公积金\"],\"target_user\":\"不确定\"}\n```",
			wantOK:       true,
			wantKeywords: []string{"公积金"},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantUnknown,
		},
		{
			name:         "braces inside strings",
			content:      `note {"keywords":["a}b","{c"],"target_user":"自然人"} trailing }`,
			wantOK:       true,
			wantKeywords: []string{"a}b", "{c"},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantCitizen,
		},
		{
			name:         "single string keywords",
			content:      `{"keywords":"医保","synonyms":["医保报销", 3, "医保报销", ""]}`,
			wantOK:       true,
			wantKeywords: []string{"医保"},
			wantSynonyms: []string{"医保报销"},
			wantTarget:   models.ApplicantUnknown,
		},
		{
			name:         "province-wide location is absent",
			content:      `{"keywords":[],"location":"全省"}`,
			wantOK:       true,
			wantKeywords: []string{},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantUnknown,
		},
		{
			name:         "string null location",
			content:      `{"location":"null"}`,
			wantOK:       true,
			wantKeywords: []string{},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantUnknown,
		},
		{
			name:         "province prefix dropped",
			content:      `{"location":"湖南省株洲市"}`,
			wantOK:       true,
			wantKeywords: []string{},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantUnknown,
			wantLocation: "株洲市",
		},
		{
			name:         "non-string target_user and location",
			content:      `{"keywords":["医保"],"synonyms":["医保报销"],"target_user":0,"location":5}`,
			wantOK:       true,
			wantKeywords: []string{"医保"},
			wantSynonyms: []string{"医保报销"},
			wantTarget:   models.ApplicantUnknown,
		},
		{
			name:         "object location in prose",
			content:      `结果：{"keywords":["公积金"],"target_user":"自然人","location":{"city":"长沙"},"intent_category":1}`,
			wantOK:       true,
			wantKeywords: []string{"公积金"},
			wantSynonyms: []string{},
			wantTarget:   models.ApplicantCitizen,
		},
		{
			name:    "no json",
			content: "抱歉，我无法回答",
			wantOK:  false,
		},
		{
			name:    "unbalanced",
			content: `{"keywords":["a"]`,
			wantOK:  false,
		},
		{
			name:    "json array is not an object",
			content: `["a","b"]`,
			wantOK:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.content)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, models.EmptyIntent(), got)
				return
			}
			assert.Equal(t, tt.wantKeywords, got.Keywords)
			assert.Equal(t, tt.wantSynonyms, got.Synonyms)
			assert.Equal(t, tt.wantTarget, got.TargetUser)
			assert.Equal(t, tt.wantLocation, got.Location)
		})
	}
}

func TestParse_Category(t *testing.T) {
	got, ok := Parse(`{"keywords":["投诉"],"intent_category":" 投诉 "}`)
	assert.True(t, ok)
	assert.Equal(t, "投诉", got.Category)
}

func TestFirstObject(t *testing.T) {
	obj, ok := firstObject(`x {"a":"\"}"} {"b":1}`)
	assert.True(t, ok)
	assert.Equal(t, `{"a":"\"}"}`, obj)

	_, ok = firstObject("no braces")
	assert.False(t, ok)
}
