package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Query builds one filtered REST operation against a table. Filters are
// PostgREST operators; every tenant-scoped call site adds an Eq on church_id.
type Query struct {
	c      *Client
	table  string
	params url.Values
	single bool
}

func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: make(url.Values)}
}

func (q *Query) Select(cols string) *Query {
	q.params.Set("select", cols)
	return q
}

func (q *Query) Eq(col, val string) *Query {
	q.params.Add(col, "eq."+val)
	return q
}

func (q *Query) In(col string, vals []string) *Query {
	q.params.Add(col, "in.("+strings.Join(vals, ",")+")")
	return q
}

// Or adds a disjunction in PostgREST syntax, e.g.
// "target_role.eq.all,target_role.eq.teacher".
func (q *Query) Or(expr string) *Query {
	q.params.Set("or", "("+expr+")")
	return q
}

func (q *Query) Order(col string, desc bool) *Query {
	direction := "asc"
	if desc {
		direction = "desc"
	}
	q.params.Set("order", col+"."+direction)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Single makes the request expect exactly one row; no match maps to
// core.ErrNotFound.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) url() string {
	return q.c.baseURL + "/rest/v1/" + q.table + "?" + q.params.Encode()
}

func (q *Query) headers(prefer ...string) map[string]string {
	h := q.c.restHeaders()
	if q.single {
		h["Accept"] = "application/vnd.pgrst.object+json"
	}
	if len(prefer) > 0 {
		h["Prefer"] = strings.Join(prefer, ",")
	}
	return h
}

func (q *Query) Get(ctx context.Context, dst interface{}) error {
	return q.c.do(ctx, q.c.http, http.MethodGet, q.url(), q.headers(), nil, dst)
}

// Insert posts one row or a slice of rows. With a non-nil dst the inserted
// representation is returned; combine with Single to get the row back as an
// object.
func (q *Query) Insert(ctx context.Context, body, dst interface{}) error {
	prefer := []string{"return=minimal"}
	if dst != nil {
		prefer = []string{"return=representation"}
	}
	return q.c.do(ctx, q.c.http, http.MethodPost, q.url(), q.headers(prefer...), body, dst)
}

// Upsert merges on the given conflict target.
func (q *Query) Upsert(ctx context.Context, body interface{}, onConflict string, dst interface{}) error {
	q.params.Set("on_conflict", onConflict)
	prefer := []string{"resolution=merge-duplicates"}
	if dst != nil {
		prefer = append(prefer, "return=representation")
	}
	return q.c.do(ctx, q.c.http, http.MethodPost, q.url(), q.headers(prefer...), body, dst)
}

func (q *Query) Update(ctx context.Context, body, dst interface{}) error {
	prefer := []string{"return=minimal"}
	if dst != nil {
		prefer = []string{"return=representation"}
	}
	return q.c.do(ctx, q.c.http, http.MethodPatch, q.url(), q.headers(prefer...), body, dst)
}

func (q *Query) Delete(ctx context.Context) error {
	return q.c.do(ctx, q.c.http, http.MethodDelete, q.url(), q.headers(), nil, nil)
}

// Count issues a HEAD request with an exact count and parses the row total
// from the Content-Range header.
func (q *Query) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, q.url(), nil)
	if err != nil {
		return 0, errors.Wrap(err, "building request")
	}
	for k, v := range q.headers("count=exact") {
		req.Header.Set(k, v)
	}

	res, err := q.c.http.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "calling platform")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return 0, &APIError{StatusCode: res.StatusCode}
	}
	return parseContentRangeTotal(res.Header.Get("Content-Range"))
}

// parseContentRangeTotal extracts N from a "0-9/N" or "*/N" range.
func parseContentRangeTotal(contentRange string) (int, error) {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", contentRange)
	}
	total := contentRange[idx+1:]
	if total == "*" {
		return 0, nil
	}
	return strconv.Atoi(total)
}

// RPC invokes a named aggregate function inside the platform's database.
func (c *Client) RPC(ctx context.Context, name string, params, dst interface{}) error {
	url := c.baseURL + "/rest/v1/rpc/" + name
	return c.do(ctx, c.http, http.MethodPost, url, c.restHeaders(), params, dst)
}
