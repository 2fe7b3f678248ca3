// Package models defines core data structures for service records, query context, and search results.
package models

import "strings"

// ApplicantType identifies who a government service is for.
type ApplicantType int

const (
	// ApplicantAll means no applicant preference (query context only).
	ApplicantAll ApplicantType = iota
	// ApplicantCitizen is a natural person (自然人).
	ApplicantCitizen
	// ApplicantLegalEntity is a legal person or organisation (法人).
	ApplicantLegalEntity
	// ApplicantUnknown is an undetermined applicant (不确定).
	ApplicantUnknown
)

// String returns the canonical Chinese label used by the source catalog.
func (a ApplicantType) String() string {
	switch a {
	case ApplicantAll:
		return "全部"
	case ApplicantCitizen:
		return "自然人"
	case ApplicantLegalEntity:
		return "法人"
	default:
		return "不确定"
	}
}

// MarshalText encodes the applicant type as its Chinese label.
func (a ApplicantType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes any label accepted by ParseApplicantType.
func (a *ApplicantType) UnmarshalText(text []byte) error {
	*a = ParseApplicantType(string(text))
	return nil
}

// ParseApplicantType maps catalog, intent, and filter labels to an ApplicantType.
// Empty input and "全部"/"all" yield ApplicantAll; anything unrecognised is ApplicantUnknown.
func ParseApplicantType(s string) ApplicantType {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "全部", "all":
		return ApplicantAll
	case "自然人", "个人", "citizen", "person":
		return ApplicantCitizen
	case "法人", "法人/非法人组织", "非法人组织", "企业", "legalentity", "legal_entity", "legal-entity", "entity":
		return ApplicantLegalEntity
	}
	if strings.Contains(s, "法人") {
		return ApplicantLegalEntity
	}
	if strings.Contains(s, "自然人") {
		return ApplicantCitizen
	}
	return ApplicantUnknown
}

// ServiceRecord is one entry of the government service catalog.
type ServiceRecord struct {
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	ShortName     string        `json:"short_name,omitempty"`
	Status        string        `json:"status,omitempty"`
	Applicant     ApplicantType `json:"applicant"`
	Category      string        `json:"category,omitempty"`
	Tags          string        `json:"tags,omitempty"`
	Region        string        `json:"region,omitempty"`
	Channels      []string      `json:"channels,omitempty"`
	HighFrequency bool          `json:"high_frequency"`
	Satisfaction  *float64      `json:"satisfaction,omitempty"` // 0-10
	Visits        int64         `json:"visits"`
}

// HasChannel reports whether the record is published on channel (case-insensitive).
func (r *ServiceRecord) HasChannel(channel string) bool {
	for _, c := range r.Channels {
		if strings.EqualFold(strings.TrimSpace(c), channel) {
			return true
		}
	}
	return false
}
