package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table, method: http.MethodGet}
}

type filter struct {
	column string
	expr   string
}

// QueryBuilder builds PostgREST requests. Filters apply to reads, updates and deletes.
type QueryBuilder struct {
	client     *Client
	table      string
	method     string
	columns    string
	embeds     []string
	filters    []filter
	orders     []string
	limit      int
	offset     int
	single     bool
	count      string
	body       any
	onConflict string
	upsert     bool
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Inner embeds relation as an inner join, so rows without a matching related row are dropped.
func (q *QueryBuilder) Inner(relation, columns string) *QueryBuilder {
	if columns == "" {
		columns = "*"
	}
	q.embeds = append(q.embeds, fmt.Sprintf("%s!inner(%s)", relation, columns))
	return q
}

// InnerEq keeps only rows whose related row in relation has column equal to value.
func (q *QueryBuilder) InnerEq(relation, column string, value any) *QueryBuilder {
	return q.Inner(relation, column).Eq(relation+"."+column, value)
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.where(column, "eq."+formatValue(value))
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.where(column, "neq."+formatValue(value))
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.where(column, "gte."+formatValue(value))
}

// Like adds a LIKE filter. Use * or % as the wildcard.
func (q *QueryBuilder) Like(column, pattern string) *QueryBuilder {
	return q.where(column, "like."+pattern)
}

// ILike adds a case-insensitive LIKE filter.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return q.where(column, "ilike."+pattern)
}

// In adds an IN filter. Values containing reserved characters are quoted.
func (q *QueryBuilder) In(column string, values ...any) *QueryBuilder {
	parts := make([]string, len(values))
	for i, v := range values {
		s := formatValue(v)
		if strings.ContainsAny(s, ",()\" ") {
			s = strconv.Quote(s)
		}
		parts[i] = s
	}
	return q.where(column, "in.("+strings.Join(parts, ",")+")")
}

// Is adds an IS filter (for null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	if value == nil {
		return q.where(column, "is.null")
	}
	return q.where(column, "is."+formatValue(value))
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the OFFSET.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single expects exactly one row, returned as an object instead of an array.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Count asks for a row count (exact, planned or estimated) in the Content-Range header.
func (q *QueryBuilder) Count(countType string) *QueryBuilder {
	q.count = countType
	return q
}

// Insert turns the request into an INSERT of data (a row or a slice of rows).
func (q *QueryBuilder) Insert(data any) *QueryBuilder {
	q.method = http.MethodPost
	q.body = data
	q.upsert = false
	return q
}

// Upsert turns the request into an INSERT that merges rows conflicting on the onConflict columns.
func (q *QueryBuilder) Upsert(data any, onConflict string) *QueryBuilder {
	q.method = http.MethodPost
	q.body = data
	q.upsert = true
	q.onConflict = onConflict
	return q
}

// Update turns the request into an UPDATE of the filtered rows.
func (q *QueryBuilder) Update(data any) *QueryBuilder {
	q.method = http.MethodPatch
	q.body = data
	return q
}

// Delete turns the request into a DELETE of the filtered rows.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = http.MethodDelete
	q.body = nil
	return q
}

// Execute sends the request.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	req, err := q.build(ctx)
	if err != nil {
		return nil, err
	}
	return q.client.do(req)
}

// ExecuteInto sends the request and decodes the response body into out, which may be nil.
func (q *QueryBuilder) ExecuteInto(ctx context.Context, out any) error {
	resp, err := q.Execute(ctx)
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(q.method), q.table, err)
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// URL returns the request URL the builder would use.
func (q *QueryBuilder) URL() string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	if params := q.params(); len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

func (q *QueryBuilder) where(column, expr string) *QueryBuilder {
	q.filters = append(q.filters, filter{column: column, expr: expr})
	return q
}

func (q *QueryBuilder) params() url.Values {
	params := url.Values{}

	if q.method == http.MethodGet || q.columns != "" || len(q.embeds) > 0 {
		cols := q.columns
		if cols == "" {
			cols = "*"
		}
		if len(q.embeds) > 0 {
			cols += "," + strings.Join(q.embeds, ",")
		}
		params.Set("select", cols)
	}

	for _, f := range q.filters {
		params.Add(f.column, f.expr)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		params.Set("offset", strconv.Itoa(q.offset))
	}
	if q.upsert && q.onConflict != "" {
		params.Set("on_conflict", q.onConflict)
	}
	return params
}

func (q *QueryBuilder) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if q.body != nil {
		data, err := json.Marshal(q.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, q.method, q.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if err := q.client.setHeaders(req); err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var prefer []string
	if q.method != http.MethodGet {
		prefer = append(prefer, "return=representation")
	}
	if q.upsert {
		prefer = append(prefer, "resolution=merge-duplicates")
	}
	if q.count != "" {
		prefer = append(prefer, "count="+q.count)
	}
	if len(prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(prefer, ","))
	}
	return req, nil
}

// RPC calls a stored procedure and decodes its result into out, which may be nil.
func (c *Client) RPC(ctx context.Context, fn string, params any, out any) error {
	reqURL := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)

	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", fn, err)
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// ContentRangeTotal parses the total from a Content-Range header such as "0-9/42". It returns -1 when unknown.
func ContentRangeTotal(h http.Header) int {
	cr := h.Get("Content-Range")
	_, total, ok := strings.Cut(cr, "/")
	if !ok || total == "*" {
		return -1
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return -1
	}
	return n
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
