// Package option provides composable query options applied on top of a
// gorm statement: keyset pagination and allow-listed sorting.
package option

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/pagination"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination applies a keyset cursor and limit. One extra row is
// fetched so callers can detect whether more pages exist.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 10
		}
		if size > 250 {
			size = 250
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor.CreatedAt != "" {
				if ts, terr := time.Parse(time.RFC3339Nano, cursor.CreatedAt); terr == nil {
					db = db.Where("(created_at, id) < (?, ?)", ts, cursor.ID)
				}
			}
		}

		return db.Limit(size + 1)
	})
}

// WithSearch applies a case-insensitive substring match across the
// given columns. An empty term is a no-op.
func WithSearch(term string, columns ...string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}

		pattern := "%" + strings.ToLower(term) + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]interface{}, 0, len(columns))
		for _, column := range columns {
			clauses = append(clauses, "LOWER("+column+") LIKE ?")
			args = append(args, pattern)
		}

		return db.Where(strings.Join(clauses, " OR "), args...)
	})
}

// QuerySortBy describes a requested ordering together with the columns
// callers are allowed to sort on.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{SortBy: sortBy, OrderBy: orderBy, Allow: allow}
}

// WithSortBy orders by the requested column when allow-listed, falling
// back to created_at. The row ID is always appended as a tiebreaker so
// cursors stay stable.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := sort.SortBy
		if column == "" || !sort.Allow[column] {
			column = "created_at"
		}

		direction := strings.ToUpper(strings.TrimSpace(sort.OrderBy))
		if direction != "ASC" && direction != "DESC" {
			direction = "DESC"
		}

		return db.Order(column + " " + direction + ", id " + direction)
	})
}
