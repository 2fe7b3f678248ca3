// Package cli provides CLI output helpers for banshi.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one aligned line per result.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format; unknown values yield OutputText.
func ParseOutputFormat(s string) SearchOutputFormat {
	switch SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputJSON:
		return OutputJSON
	case OutputCompact:
		return OutputCompact
	default:
		return OutputText
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	mode := "query"
	if response.NormalizedQuery == "" {
		mode = "browse"
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s, catalog v%d, showing %d)\n",
		response.Total, response.QueryTime, mode, response.CatalogVersion, len(response.Results))
	if response.Degraded != "" {
		fmt.Fprintf(w, "Intent expansion unavailable: %s\n", response.Degraded)
	} else if in := response.Intent; in != nil {
		fmt.Fprintf(w, "Intent: keywords=%s synonyms=%s target=%s",
			strings.Join(in.Keywords, "、"), strings.Join(in.Synonyms, "、"), in.TargetUser)
		if in.Location != "" {
			fmt.Fprintf(w, " location=%s", in.Location)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	for _, hit := range response.Results {
		writeOneResult(w, hit)
	}
}

func writeOneResult(w io.Writer, hit *models.SearchHit) {
	rec := hit.Record
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.2f\n", hit.Rank, hit.Score)
	fmt.Fprintf(w, "%s", rec.Name)
	if rec.HighFrequency {
		fmt.Fprint(w, " [高频]")
	}
	fmt.Fprintf(w, "\nCode: %s | Applicant: %s | Region: %s\n", rec.Code, rec.Applicant, rec.Region)
	if len(rec.Channels) > 0 {
		fmt.Fprintf(w, "Channels: %s\n", strings.Join(rec.Channels, ", "))
	}
	line := fmt.Sprintf("Visits: %d", rec.Visits)
	if rec.Satisfaction != nil {
		line += fmt.Sprintf(" | Satisfaction: %.1f", *rec.Satisfaction)
	}
	fmt.Fprintln(w, line)
	if b := hit.Breakdown; b != nil {
		fmt.Fprintf(w, "Breakdown: containment=%.0f prefix=%.0f exact=%.0f synonym=%.0f coverage=%.1f browse=%.0f applicant=%.0f region=%.0f popularity=%.2f high_freq=%.0f satisfaction=%.1f\n",
			b.Containment, b.Prefix, b.ExactName, b.Synonym, b.Coverage, b.Browse,
			b.Applicant, b.Region, b.Popularity, b.HighFreq, b.Satisfaction)
		if len(b.MatchedTerms) > 0 {
			fmt.Fprintf(w, "Matched: %s\n", strings.Join(b.MatchedTerms, "、"))
		}
	}
	fmt.Fprintln(w)
}

const (
	compactNameCols   = 36
	compactRegionCols = 16
)

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, hit := range response.Results {
		rec := hit.Record
		name := utils.PadRight(utils.FitWidth(rec.Name, compactNameCols), compactNameCols)
		region := utils.PadRight(utils.FitWidth(rec.Region, compactRegionCols), compactRegionCols)
		fmt.Fprintf(w, "%3d  %8.2f  %s  %s  %s\n", hit.Rank, hit.Score, name, region, rec.Code)
	}
	fmt.Fprintf(w, "(%d of %d, %dms)\n", len(response.Results), response.Total, response.QueryTime)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
