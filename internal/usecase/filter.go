package usecase

import (
	"time"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
)

// Sort keys are a closed allow-list; anything else falls back to the default
// so callers can never inject arbitrary column names.
type SortField string

const (
	SortByID        SortField = "id"
	SortByStatus    SortField = "status"
	SortByCreatedAt SortField = "created_at"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// OrderFilter is a flat set of optional clauses. Every set field restricts the
// result; unset fields are no-ops. Set fields combine conjunctively, the
// search term is ORed over its field list and then ANDed with the rest.
type OrderFilter struct {
	Status      *domain.Status
	StatusIn    []domain.Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// ProductIDs matches orders having at least one line item whose product
	// id is in the set.
	ProductIDs []string
	// Search matches case-insensitively against order id, external id,
	// detail email and detail phone.
	Search string
}

type Page struct {
	Offset int
	Limit  int
	SortBy SortField
	Dir    SortDir
}

func (p Page) Normalize() Page {
	switch p.SortBy {
	case SortByID, SortByStatus, SortByCreatedAt:
	default:
		p.SortBy = SortByID
	}
	if p.Dir != SortAsc {
		p.Dir = SortDesc
	}
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
