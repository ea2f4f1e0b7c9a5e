package chi

import (
	"time"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeEmptyDimensionSet      ErrorCode = "empty_dimension_set"
	ErrorCodeUnknownDimension       ErrorCode = "unknown_dimension"
	ErrorCodeUnknownGroup           ErrorCode = "unknown_group"
	ErrorCodeMahalanobisUnavailable ErrorCode = "mahalanobis_unavailable"
	ErrorCodeCatalogNotLoaded       ErrorCode = "catalog_not_loaded"
	ErrorCodeSoundNotFound          ErrorCode = "sound_not_found"
	ErrorCodeDataFormat             ErrorCode = "data_format_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// TargetRequest is one selected dimension with its desired rating.
type TargetRequest struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

// DemographicsRequest selects listener groups by attribute.
type DemographicsRequest struct {
	Genders    []string `json:"genders,omitempty"`
	Migrations []string `json:"migrations,omitempty"`
	Ages       []string `json:"ages,omitempty"`
}

// MatchRequest is the body of POST /match and POST /match/compare.
type MatchRequest struct {
	Targets        []TargetRequest      `json:"targets"`
	Metric         *string              `json:"metric,omitempty"`
	Metrics        []string             `json:"metrics,omitempty"` // compare only
	Groups         []int                `json:"groups,omitempty"`
	Demographics   *DemographicsRequest `json:"demographics,omitempty"`
	MinLiking      *float64             `json:"min_liking,omitempty"`
	MinFamiliarity *float64             `json:"min_familiarity,omitempty"`
	TopN           *int                 `json:"top_n,omitempty"`
}

// MatchResultItem is one ranked sound.
type MatchResultItem struct {
	Sound       string   `json:"sound"`
	Distance    float64  `json:"distance"`
	Liking      *float64 `json:"liking,omitempty"`
	Familiarity *float64 `json:"familiarity,omitempty"`
}

// PartialResponse reports a selection shorter than requested.
type PartialResponse struct {
	Requested int `json:"requested"`
	Returned  int `json:"returned"`
	Missing   int `json:"missing"`
}

// MatchResponse is the body of a successful POST /match.
type MatchResponse struct {
	Metric  string            `json:"metric"`
	Results []MatchResultItem `json:"results"`
	Partial *PartialResponse  `json:"partial,omitempty"`
}

// CompareOutcome is the per-metric part of a comparison.
type CompareOutcome struct {
	Metric  string            `json:"metric"`
	Results []MatchResultItem `json:"results,omitempty"`
	Partial *PartialResponse  `json:"partial,omitempty"`
	Error   *ErrorResponse    `json:"error,omitempty"`
}

// CompareResponse is the body of POST /match/compare.
type CompareResponse struct {
	Outcomes []CompareOutcome `json:"outcomes"`
}

// DimensionItem describes one catalog dimension.
type DimensionItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Level string `json:"level,omitempty"`
}

// DimensionsResponse is the body of GET /dimensions.
type DimensionsResponse struct {
	Dimensions           []DimensionItem `json:"dimensions"`
	MahalanobisAvailable bool            `json:"mahalanobis_available"`
}

// GroupItem describes one demographic group.
type GroupItem struct {
	ID        int    `json:"id"`
	Gender    string `json:"gender"`
	Migration string `json:"migration"`
	Age       string `json:"age"`
	AgeRange  string `json:"age_range,omitempty"`
}

// GroupsResponse is the body of GET /groups.
type GroupsResponse struct {
	Groups []GroupItem `json:"groups"`
}

// SnapshotResponse is the body of POST /admin/reload.
type SnapshotResponse struct {
	Version              string    `json:"version"`
	LoadedAt             time.Time `json:"loaded_at"`
	Entries              int       `json:"entries"`
	MahalanobisAvailable bool      `json:"mahalanobis_available"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Entries  int               `json:"entries"`
	Snapshot string            `json:"snapshot,omitempty"`
	Version  string            `json:"version"`
}

func resultsToDTO(rs []result.Result) []MatchResultItem {
	items := make([]MatchResultItem, len(rs))
	for i := range rs {
		r := &rs[i]
		item := MatchResultItem{Sound: r.Sound(), Distance: r.Distance()}
		if r.HasScores() {
			liking, fam := r.Liking(), r.Familiarity()
			item.Liking, item.Familiarity = &liking, &fam
		}
		items[i] = item
	}
	return items
}

func partialToDTO(w *domain.PartialResultWarning) *PartialResponse {
	if w == nil {
		return nil
	}
	return &PartialResponse{Requested: w.Requested, Returned: w.Returned, Missing: w.Missing()}
}

func selectionToDTO(metric string, sel result.Selection) MatchResponse {
	return MatchResponse{
		Metric:  metric,
		Results: resultsToDTO(sel.Results),
		Partial: partialToDTO(sel.Warning),
	}
}

func outcomeToDTO(o matchuc.Outcome) CompareOutcome {
	out := CompareOutcome{Metric: string(o.Metric)}
	if o.Err != nil {
		_, code := errorStatus(o.Err)
		out.Error = &ErrorResponse{Code: code, Message: safeDomainMessage(o.Err)}
		return out
	}
	out.Results = resultsToDTO(o.Selection.Results)
	out.Partial = partialToDTO(o.Selection.Warning)
	return out
}

func dimensionsToDTO(dims []dimension.Dimension) []DimensionItem {
	items := make([]DimensionItem, len(dims))
	for i, d := range dims {
		info := dimension.Lookup(d)
		items[i] = DimensionItem{Key: string(info.Key), Label: info.Label, Level: string(info.Level)}
	}
	return items
}

func groupsToDTO(groups []demographic.Group) []GroupItem {
	items := make([]GroupItem, len(groups))
	for i, g := range groups {
		items[i] = GroupItem{
			ID:        int(g.ID),
			Gender:    g.Gender,
			Migration: g.Migration,
			Age:       g.Age,
			AgeRange:  demographic.AgeRanges[g.Age],
		}
	}
	return items
}

func snapshotToDTO(s *snapshot.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Version:              s.Version.String(),
		LoadedAt:             s.LoadedAt,
		Entries:              s.Catalog.Len(),
		MahalanobisAvailable: s.MahalanobisAvailable(),
	}
}
