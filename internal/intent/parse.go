package intent

import (
	"encoding/json"
	"strings"

	"github.com/hyperjump/banshi/internal/models"
)

// wireIntent is the JSON object the model is asked to return.
type wireIntent struct {
	Keywords       stringList  `json:"keywords"`
	Synonyms       stringList  `json:"synonyms"`
	TargetUser     looseString `json:"target_user"`
	Location       looseString `json:"location"`
	IntentCategory looseString `json:"intent_category"`
}

// looseString keeps a JSON string value and treats null, numbers, booleans,
// arrays and objects as absent.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// stringList accepts either a JSON array or a single string. Non-string
// array elements are ignored.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = stringList{single}
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		// Anything else (numbers, objects) carries no terms.
		*l = nil
		return nil
	}
	out := make(stringList, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// Parse extracts an intent from model output. It first tries the whole
// content as JSON, then the first balanced {...} object in it. It reports
// false when neither yields a JSON object.
func Parse(content string) (models.AnalyzedIntent, bool) {
	content = stripCodeFence(strings.TrimSpace(content))

	var w wireIntent
	if err := decodeObject(content, &w); err != nil {
		obj, found := firstObject(content)
		if !found {
			return models.EmptyIntent(), false
		}
		w = wireIntent{}
		if err := decodeObject(obj, &w); err != nil {
			return models.EmptyIntent(), false
		}
	}
	return w.toIntent(), true
}

func decodeObject(s string, w *wireIntent) error {
	// Only a JSON object is acceptable; arrays and scalars fail here.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), w)
}

func (w wireIntent) toIntent() models.AnalyzedIntent {
	intent := models.EmptyIntent()
	intent.Keywords = cleanTerms(w.Keywords)
	intent.Synonyms = cleanTerms(w.Synonyms)
	intent.TargetUser = targetUser(string(w.TargetUser))
	intent.Location = location(string(w.Location))
	intent.Category = strings.TrimSpace(string(w.IntentCategory))
	return intent
}

func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// targetUser keeps only the two concrete applicant types; everything else is unknown.
func targetUser(s string) models.ApplicantType {
	switch t := models.ParseApplicantType(s); t {
	case models.ApplicantCitizen, models.ApplicantLegalEntity:
		return t
	default:
		return models.ApplicantUnknown
	}
}

// location returns "" for absent or province-wide answers and drops a leading
// province name so the value can be matched against prefecture regions.
func location(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "无", "全省", "全部", "湖南", "湖南省", "不确定":
		return ""
	}
	for _, prefix := range []string{"湖南省", "湖南"} {
		if rest := strings.TrimPrefix(s, prefix); rest != s && rest != "" {
			return rest
		}
	}
	return s
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// firstObject returns the first balanced {...} substring, ignoring braces
// inside JSON string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
