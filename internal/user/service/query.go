package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/gogotex/backend/userstore/internal/user"
)

// ErrNoField is reported when a comparison is chained before Where.
var ErrNoField = errors.New("query: comparison without a preceding Where")

// Query composes a find. Nothing reaches the store until Exec or One is
// called. Every chained condition narrows the result (conditions are ANDed).
// A Query is not safe for concurrent use while it is being built.
type Query struct {
	svc      *Service
	filter   user.Filter
	field    string
	limit    int64
	fields   []string
	populate []string
	err      error
}

// Query starts an empty query matching every user.
func (s *Service) Query() *Query {
	return &Query{svc: s}
}

// Where selects the field the next comparisons apply to.
func (q *Query) Where(field string) *Query {
	q.field = field
	return q
}

func (q *Query) add(op user.Op, v any) *Query {
	if q.err != nil {
		return q
	}
	if q.field == "" {
		q.err = fmt.Errorf("%w (%s)", ErrNoField, op)
		return q
	}
	q.filter = q.filter.And(user.Condition{Field: q.field, Op: op, Value: v})
	return q
}

func (q *Query) Equals(v any) *Query { return q.add(user.OpEq, v) }
func (q *Query) Gt(v any) *Query     { return q.add(user.OpGt, v) }
func (q *Query) Gte(v any) *Query    { return q.add(user.OpGte, v) }
func (q *Query) Lt(v any) *Query     { return q.add(user.OpLt, v) }
func (q *Query) Lte(v any) *Query    { return q.add(user.OpLte, v) }

// Regex matches the current field against r.
func (q *Query) Regex(r user.Regex) *Query { return q.add(user.OpRegex, r) }

// Filter appends ready-made conditions.
func (q *Query) Filter(c ...user.Condition) *Query {
	q.filter = q.filter.And(c...)
	return q
}

// Limit caps the number of results.
func (q *Query) Limit(n int64) *Query {
	if n < 0 && q.err == nil {
		q.err = fmt.Errorf("query: negative limit %d", n)
	}
	q.limit = n
	return q
}

// Select restricts the returned fields. The id is always returned.
func (q *Query) Select(fields ...string) *Query {
	q.fields = append(q.fields, fields...)
	return q
}

// Populate resolves the reference at path on every result.
func (q *Query) Populate(path string) *Query {
	q.populate = append(q.populate, path)
	return q
}

// Conditions returns the filter built so far.
func (q *Query) Conditions() user.Filter {
	return q.filter.And()
}

// Exec runs the query.
func (q *Query) Exec(ctx context.Context) ([]*user.User, error) {
	if q.err != nil {
		return nil, q.err
	}
	out, err := q.svc.Find(ctx, q.filter, user.FindOptions{Limit: q.limit, Fields: q.fields})
	if err != nil {
		return nil, err
	}
	for _, path := range q.populate {
		if err := q.svc.PopulateAll(ctx, out, path); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// One runs the query and returns the first match or user.ErrNotFound.
func (q *Query) One(ctx context.Context) (*user.User, error) {
	saved := q.limit
	q.limit = 1
	out, err := q.Exec(ctx)
	q.limit = saved
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, user.ErrNotFound
	}
	return out[0], nil
}
