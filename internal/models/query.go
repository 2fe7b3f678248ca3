package models

import (
	"fmt"
	"strings"
)

// QueryContext holds the user-chosen filters for one search turn.
// It is passed by value so later changes never reach an in-flight turn.
type QueryContext struct {
	Applicant            ApplicantType `json:"applicant"`
	Region               string        `json:"region,omitempty"`
	Channel              string        `json:"channel,omitempty"`
	SatisfactionWeighted bool          `json:"satisfaction_weighted,omitempty"`
}

// IsAllValue reports whether a region or channel filter value means "no filter".
func IsAllValue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "全部", "全省", "all":
		return true
	}
	return false
}

// RegionFilter returns the selected region, or "" when all regions are allowed.
func (c QueryContext) RegionFilter() string {
	if IsAllValue(c.Region) {
		return ""
	}
	return strings.TrimSpace(c.Region)
}

// ChannelFilter returns the selected channel, or "" when all channels are allowed.
func (c QueryContext) ChannelFilter() string {
	if IsAllValue(c.Channel) {
		return ""
	}
	return strings.TrimSpace(c.Channel)
}

// ApplicantFilter returns the applicant filter; ApplicantUnknown is treated as all.
func (c QueryContext) ApplicantFilter() ApplicantType {
	if c.Applicant == ApplicantUnknown {
		return ApplicantAll
	}
	return c.Applicant
}

// SearchRequest is the wire form of one search turn.
type SearchRequest struct {
	Query                string        `json:"query"`
	Applicant            ApplicantType `json:"applicant"`
	Region               string        `json:"region,omitempty"`
	Channel              string        `json:"channel,omitempty"`
	SatisfactionWeighted bool          `json:"satisfaction_weighted,omitempty"`
	Limit                int           `json:"limit,omitempty"`
	Explain              bool          `json:"explain,omitempty"`
}

// Context returns the request's query context.
func (q *SearchRequest) Context() QueryContext {
	return QueryContext{
		Applicant:            q.Applicant,
		Region:               q.Region,
		Channel:              q.Channel,
		SatisfactionWeighted: q.SatisfactionWeighted,
	}
}

// Validate normalizes the limit into [1, maxLimit], using defaultLimit when unset.
// An empty query is valid: it selects the browse view.
func (q *SearchRequest) Validate(defaultLimit, maxLimit int) error {
	if maxLimit <= 0 {
		return fmt.Errorf("max limit must be positive, got %d", maxLimit)
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
