package audit

import (
	"strings"

	dErrors "hrdms/pkg/domain-errors"
	audit "hrdms/pkg/platform/audit"
)

// ListRequest is the input of ListRecords. Zero values mean "no constraint"
// or "use the default".
type ListRequest struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	From       audit.TimeBound
	To         audit.TimeBound
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// ListResult is one page of records plus the window that produced it.
type ListResult struct {
	Records []*audit.Record `json:"records"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func newListResult(page *audit.Page, p audit.Pagination) *ListResult {
	records := page.Records
	if records == nil {
		records = []*audit.Record{}
	}
	return &ListResult{Records: records, Total: page.Total, Limit: p.Limit, Offset: p.Offset}
}

// ResolvePagination applies the default limit and the cap. A zero limit means
// the default; negative values are rejected.
func ResolvePagination(limit, offset int) (audit.Pagination, error) {
	if limit < 0 {
		return audit.Pagination{}, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	if offset < 0 {
		return audit.Pagination{}, dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}
	if limit == 0 {
		limit = audit.DefaultLimit
	}
	return audit.Pagination{Limit: min(limit, audit.MaxLimit), Offset: offset}, nil
}

func (r ListRequest) toQuery() (audit.Query, error) {
	var q audit.Query

	page, err := ResolvePagination(r.Limit, r.Offset)
	if err != nil {
		return q, err
	}
	q.Page = page

	q.Filter.ActorID = strings.TrimSpace(r.ActorID)
	q.Filter.EntityID = strings.TrimSpace(r.EntityID)
	if strings.TrimSpace(r.Action) != "" {
		if q.Filter.Action, err = audit.ParseAction(r.Action); err != nil {
			return q, err
		}
	}
	if strings.TrimSpace(r.EntityType) != "" {
		if q.Filter.EntityType, err = audit.ParseEntityType(r.EntityType); err != nil {
			return q, err
		}
	}

	if q.Filter.From, err = r.From.Resolve("from", false); err != nil {
		return q, err
	}
	if q.Filter.To, err = r.To.Resolve("to", true); err != nil {
		return q, err
	}
	if q.Filter.From != nil && q.Filter.To != nil && q.Filter.From.After(*q.Filter.To) {
		return q, dErrors.New(dErrors.CodeValidation, "from must not be after to")
	}

	var ok bool
	if q.SortBy, ok = audit.ParseSortField(r.SortBy); !ok {
		return q, dErrors.New(dErrors.CodeValidation, "sort_by must be one of created_at, action, affected_entity_type")
	}
	if q.SortOrder, ok = audit.ParseSortOrder(r.SortOrder); !ok {
		return q, dErrors.New(dErrors.CodeValidation, "sort_order must be asc or desc")
	}
	return q, nil
}
