// Package search pages through an indexed order table.
package search

import (
	"errors"
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/errs"
	"github.com/uhyunpark/bilateral/pkg/storage"
)

const (
	DefaultPageSize   uint64 = 10
	MaxPageSize       uint64 = 25
	MinPageSize       uint64 = 1
	DefaultPageNumber uint64 = 1
)

// Type selects the candidate set of a search.
type Type string

const (
	All     Type = "all"
	ByType  Type = "type"
	ByID    Type = "id"
	ByOwner Type = "owner"
)

// ParseType accepts the search type names used on the wire.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case All, ByType, ByID, ByOwner:
		return t, nil
	case "":
		return All, nil
	default:
		return "", errs.New(errs.CodeInvalidRequest, fmt.Sprintf("unknown search type %q", s))
	}
}

// Query is a search request. Value is the trade type, id or owner for the
// corresponding search type and ignored for All. Nil page fields use defaults.
type Query struct {
	Type       Type    `json:"search_type"`
	Value      string  `json:"value,omitempty"`
	PageSize   *uint64 `json:"page_size,omitempty"`
	PageNumber *uint64 `json:"page_number,omitempty"`
}

// Result is one page of a search.
type Result[T any] struct {
	Results    []T    `json:"results"`
	PageNumber uint64 `json:"page_number"`
	PageSize   uint64 `json:"page_size"`
	TotalPages uint64 `json:"total_pages"`
}

// ClampPageSize applies the default and bounds to a requested page size.
func ClampPageSize(requested *uint64) uint64 {
	if requested == nil {
		return DefaultPageSize
	}
	return min(max(*requested, MinPageSize), MaxPageSize)
}

// ClampPageNumber applies the default and floor to a requested page number.
func ClampPageNumber(requested *uint64) uint64 {
	if requested == nil {
		return DefaultPageNumber
	}
	return max(*requested, DefaultPageNumber)
}

// TotalPages is ceil(total / pageSize) in integer arithmetic.
func TotalPages(total, pageSize uint64) uint64 {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// Table is the read surface of an indexed store.
type Table[T any] interface {
	Get(kv storage.KV, id string) (T, error)
	Scan(kv storage.KV, fn func(T) (bool, error)) error
	ScanIndex(kv storage.KV, index, value string, fn func(T) (bool, error)) error
}

// Repository runs queries against one table.
type Repository[T any] struct {
	table Table[T]
}

func NewRepository[T any](table Table[T]) *Repository[T] {
	return &Repository[T]{table: table}
}

// Search selects the candidate set, counts it in full, then returns the
// requested window. Results ascend by primary key.
func (r *Repository[T]) Search(kv storage.KV, q Query) (Result[T], error) {
	size := ClampPageSize(q.PageSize)
	number := ClampPageNumber(q.PageNumber)
	out := Result[T]{Results: []T{}, PageNumber: number, PageSize: size}

	if q.Type == ByID {
		v, err := r.table.Get(kv, q.Value)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return out, nil
		case err != nil:
			return out, err
		}
		out.TotalPages = TotalPages(1, size)
		if number == 1 {
			out.Results = append(out.Results, v)
		}
		return out, nil
	}

	scan, err := r.scanner(q)
	if err != nil {
		return out, err
	}

	var total uint64
	if err := scan(kv, func(T) (bool, error) {
		total++
		return true, nil
	}); err != nil {
		return out, fmt.Errorf("failed to count search candidates: %w", err)
	}
	out.TotalPages = TotalPages(total, size)

	skip := size * (number - 1)
	if number-1 != 0 && skip/(number-1) != size {
		return out, nil // window start overflows: nothing to return
	}
	if skip >= total {
		return out, nil
	}

	var seen uint64
	err = scan(kv, func(v T) (bool, error) {
		seen++
		if seen <= skip {
			return true, nil
		}
		out.Results = append(out.Results, v)
		return uint64(len(out.Results)) < size, nil
	})
	if err != nil {
		return out, fmt.Errorf("failed to read search page: %w", err)
	}
	return out, nil
}

func (r *Repository[T]) scanner(q Query) (func(storage.KV, func(T) (bool, error)) error, error) {
	switch q.Type {
	case All, "":
		return r.table.Scan, nil
	case ByType:
		typ, err := order.ParseTradeType(q.Value)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInvalidRequest, "invalid type search value", err)
		}
		return func(kv storage.KV, fn func(T) (bool, error)) error {
			return r.table.ScanIndex(kv, storage.IndexType, string(typ), fn)
		}, nil
	case ByOwner:
		return func(kv storage.KV, fn func(T) (bool, error)) error {
			return r.table.ScanIndex(kv, storage.IndexOwner, q.Value, fn)
		}, nil
	default:
		return nil, errs.New(errs.CodeInvalidRequest, fmt.Sprintf("unknown search type %q", q.Type))
	}
}
