package catalog

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/models"
)

// Column header aliases, tried in order. The first non-empty value wins.
var (
	codeHeaders         = []string{"事项编码", "编码", "code"}
	nameHeaders         = []string{"事项名称", "名称", "name"}
	shortNameHeaders    = []string{"事项简称", "简称", "short_name"}
	statusHeaders       = []string{"状态", "status"}
	applicantHeaders    = []string{"服务对象", "申请人", "applicant"}
	categoryHeaders     = []string{"事项分类", "分类", "category"}
	tagsHeaders         = []string{"事项标签", "标签", "tags"}
	regionHeaders       = []string{"所属市州单位", "所属地区", "region"}
	highFrequencyHeader = []string{"是否高频事项", "高频", "high_frequency"}
	channelHeaders      = []string{"发布渠道", "渠道", "channels"}
	satisfactionHeaders = []string{"满意度", "satisfaction"}
	visitsHeaders       = []string{"访问量", "搜索量", "visits"}
)

// ImportStats summarizes a row mapping pass.
type ImportStats struct {
	Rows          int `json:"rows"`
	MissingName   int `json:"missing_name"`
	GeneratedCode int `json:"generated_code"`
}

// FromRows maps header-keyed rows onto service records. Header matching is
// case-insensitive and ignores surrounding whitespace. Rows without a name
// are kept and logged.
func FromRows(rows []map[string]string, logger *zap.Logger) ([]models.ServiceRecord, ImportStats) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := ImportStats{Rows: len(rows)}
	records := make([]models.ServiceRecord, 0, len(rows))

	for i, raw := range rows {
		row := normalizeHeaders(raw)
		rec := models.ServiceRecord{
			Code:          lookup(row, codeHeaders),
			Name:          lookup(row, nameHeaders),
			ShortName:     lookup(row, shortNameHeaders),
			Status:        lookup(row, statusHeaders),
			Applicant:     models.ParseApplicantType(lookup(row, applicantHeaders)),
			Category:      lookup(row, categoryHeaders),
			Tags:          lookup(row, tagsHeaders),
			Region:        lookup(row, regionHeaders),
			Channels:      SplitChannels(lookup(row, channelHeaders)),
			HighFrequency: ParseFlag(lookup(row, highFrequencyHeader)),
			Satisfaction:  ParseSatisfaction(lookup(row, satisfactionHeaders)),
			Visits:        ParseVisits(lookup(row, visitsHeaders)),
		}
		if rec.Code == "" {
			rec.Code = uuid.NewString()
			stats.GeneratedCode++
		}
		if rec.Name == "" {
			stats.MissingName++
			logger.Warn("catalog row has no service name", zap.Int("row", i+1), zap.String("code", rec.Code))
		}
		records = append(records, rec)
	}

	logger.Debug("mapped catalog rows",
		zap.Int("rows", stats.Rows),
		zap.Int("missing_name", stats.MissingName),
		zap.Int("generated_code", stats.GeneratedCode),
	)
	return records, stats
}

func normalizeHeaders(raw map[string]string) map[string]string {
	row := make(map[string]string, len(raw))
	for k, v := range raw {
		row[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(k, "\ufeff")))] = strings.TrimSpace(v)
	}
	return row
}

func lookup(row map[string]string, headers []string) string {
	for _, h := range headers {
		if v := row[strings.ToLower(h)]; v != "" {
			return v
		}
	}
	return ""
}

var visitSeparators = strings.NewReplacer(",", "", "，", "", "_", "", " ", "", "'", "")

// ParseVisits parses a visit count, ignoring thousands separators.
// Unparsable or negative values yield 0.
func ParseVisits(s string) int64 {
	s = visitSeparators.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// ParseSatisfaction parses a 0-10 satisfaction rating. It returns nil when
// absent, unparsable or not finite, and clamps out-of-range values.
func ParseSatisfaction(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return nil
	}
	v = clamp(v, 0, 10)
	return &v
}

// ParseFlag reports whether s is an affirmative marker such as "是" or "true".
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "是", "y", "yes", "true", "1", "高频":
		return true
	}
	return false
}

// SplitChannels splits a channel list on common Latin and CJK separators.
func SplitChannels(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '，', '、', ';', '；', '/', '|':
			return true
		}
		return false
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
