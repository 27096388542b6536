package session

import (
	"github.com/dragginzgame/icydb-core/cursor"
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/value"
)

// Terminal selects which of Load's four Response shapes a Query wants
// when no Window.Limit makes the choice for it (spec §6 "Response ...
// Rows | Scalar | GroupedRows | PagedRows").
type Terminal uint8

const (
	// TerminalRows returns every matching row, unbounded.
	TerminalRows Terminal = iota
	// TerminalFirstValueBy returns Field's value from the first row.
	TerminalFirstValueBy
	// TerminalLastValueBy returns Field's value from the last row.
	TerminalLastValueBy
	// TerminalGroupBy buckets rows by Field, in first-observed order.
	TerminalGroupBy
)

// Query describes one load request against a single entity.
type Query struct {
	Entity   string
	Where    predicate.Predicate
	Order    []planner.OrderField
	Window   planner.Window
	Cursor   *string
	Terminal Terminal
	Field    string // required for TerminalFirstValueBy/TerminalLastValueBy/TerminalGroupBy
}

// ResponseKind tags which field of Response is populated.
type ResponseKind uint8

const (
	ResponseRows ResponseKind = iota
	ResponseScalar
	ResponseGroupedRows
	ResponsePagedRows
)

// Response is the closed sum type Load returns (spec §6). Exactly the
// field matching Kind is meaningful.
type Response struct {
	Kind ResponseKind

	Rows []executor.Record // ResponseRows

	Scalar *value.Value // ResponseScalar, nil if no row matched

	Grouped []executor.Group // ResponseGroupedRows

	Paged      []executor.Record // ResponsePagedRows
	NextCursor *string           // ResponsePagedRows, nil if no further page
}

// Load plans, executes, and projects q against the live store (spec §6
// "load(query) -> Response"). A Window.Limit always yields PagedRows,
// regardless of Terminal; Terminal only discriminates the unbounded
// case.
func (s *Session) Load(q Query) (Response, error) {
	entity, codec, err := s.resolve(q.Entity)
	if err != nil {
		return Response{}, err
	}

	plan, err := planner.Build(entity, predicate.Normalize(q.Where), q.Order, q.Window)
	if err != nil {
		return Response{}, err
	}

	var token *cursor.Token
	if q.Cursor != nil {
		t, err := cursor.Decode(*q.Cursor)
		if err != nil {
			return Response{}, err
		}
		token = &t
	}

	var page *executor.Page
	if err := s.store.View(func(tx kv.Tx) error {
		p, err := executor.Execute(tx, entity, codec, plan, token)
		if err != nil {
			return err
		}
		page = p
		return nil
	}); err != nil {
		return Response{}, err
	}
	s.stats.RowsScanned += uint64(len(page.Rows))

	if q.Window.Limit != nil {
		return Response{Kind: ResponsePagedRows, Paged: page.Rows, NextCursor: page.NextCursor}, nil
	}

	switch q.Terminal {
	case TerminalFirstValueBy:
		v, found, err := executor.FirstValueBy(page.Rows, q.Field)
		if err != nil {
			return Response{}, err
		}
		if !found {
			return Response{Kind: ResponseScalar}, nil
		}
		return Response{Kind: ResponseScalar, Scalar: &v}, nil
	case TerminalLastValueBy:
		v, found, err := executor.LastValueBy(page.Rows, q.Field)
		if err != nil {
			return Response{}, err
		}
		if !found {
			return Response{Kind: ResponseScalar}, nil
		}
		return Response{Kind: ResponseScalar, Scalar: &v}, nil
	case TerminalGroupBy:
		groups, err := executor.GroupBy(page.Rows, q.Field)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: ResponseGroupedRows, Grouped: groups}, nil
	default:
		return Response{Kind: ResponseRows, Rows: page.Rows}, nil
	}
}

// rows runs q unbounded (ignoring q.Window/q.Cursor/q.Terminal) and
// returns the raw materialized rows, shared by the typed projection
// helpers in projections.go.
func (s *Session) rows(q Query) ([]executor.Record, error) {
	entity, codec, err := s.resolve(q.Entity)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Build(entity, predicate.Normalize(q.Where), q.Order, planner.Window{})
	if err != nil {
		return nil, err
	}

	var page *executor.Page
	if err := s.store.View(func(tx kv.Tx) error {
		p, err := executor.Execute(tx, entity, codec, plan, nil)
		if err != nil {
			return err
		}
		page = p
		return nil
	}); err != nil {
		return nil, err
	}
	s.stats.RowsScanned += uint64(len(page.Rows))
	return page.Rows, nil
}
