package storage

import (
	"fmt"
	"strings"

	"media_gallery/internal/models"
)

// State narrows a query by soft-delete state.
type State int

const (
	StateAny State = iota
	StateActive
	StateDeleted
)

// Order is applied to created_at, with id as tie-breaker.
type Order int

const (
	OrderNewestFirst Order = iota
	OrderOldestFirst
)

// Filter is the typed query every store understands. Zero values mean
// "no restriction", except Limit where 0 means unbounded.
type Filter struct {
	OwnerID string
	State   State
	Status  string
	Limit   int
	Offset  int
	Order   Order
}

// Matches reports whether r satisfies the owner, state and status restrictions.
// Pagination and ordering are not considered.
func (f Filter) Matches(r *models.MediaRecord) bool {
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	switch f.State {
	case StateActive:
		if r.DeletedAt != nil {
			return false
		}
	case StateDeleted:
		if r.DeletedAt == nil {
			return false
		}
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	switch f.State {
	case StateActive:
		conds = append(conds, "deleted_at IS NULL")
	case StateDeleted:
		conds = append(conds, "deleted_at IS NOT NULL")
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func selectQuery(table string, f Filter) (string, []any) {
	where, args := f.where()

	var b strings.Builder
	b.WriteString("SELECT " + recordColumns + " FROM " + table + where)
	if f.Order == OrderOldestFirst {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func countQuery(table string, f Filter) (string, []any) {
	where, args := f.where()
	return "SELECT COUNT(*) FROM " + table + where, args
}
