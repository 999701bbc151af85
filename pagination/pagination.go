// Package pagination normalises the list metadata returned by the admin API.
//
// Endpoints disagree on where they put paging information: most return
// {"meta":{"currentPage":n,"totalPages":m}}, some return top-level
// {"total":t,"page":p,"limit":l}, and the admins list encodes its meta
// numbers as strings. Parse reduces all of them to one Meta.
package pagination

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Shape identifies which wire layout a Meta was decoded from.
type Shape int

const (
	// ShapeNone means the body carried no paging information.
	ShapeNone Shape = iota
	// ShapeMeta is {"meta":{"currentPage","totalPages"}}.
	ShapeMeta
	// ShapeTotals is top-level {"total","page","limit"}.
	ShapeTotals
	// ShapeCursor is {"meta":{"nextCursor"}} or top-level "nextCursor".
	ShapeCursor
)

func (s Shape) String() string {
	switch s {
	case ShapeMeta:
		return "meta"
	case ShapeTotals:
		return "totals"
	case ShapeCursor:
		return "cursor"
	default:
		return "none"
	}
}

// Meta is the canonical paging description of one list response.
type Meta struct {
	CurrentPage int    `json:"currentPage,omitempty"`
	TotalPages  int    `json:"totalPages,omitempty"`
	Total       int    `json:"total,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Cursor      string `json:"cursor,omitempty"`
	Shape       Shape  `json:"-"`
}

// Parse extracts paging metadata from a raw JSON response body. When both
// the meta and totals layouts are present, meta wins. Malformed bodies
// yield a zero Meta with ShapeNone.
func Parse(body []byte) Meta {
	if !gjson.ValidBytes(body) {
		return Meta{}
	}
	root := gjson.ParseBytes(body)

	var m Meta
	if v := root.Get("total"); v.Exists() {
		m.Total = asInt(v)
	}
	if v := root.Get("limit"); v.Exists() {
		m.Limit = asInt(v)
	}

	meta := root.Get("meta")
	if cur, total := meta.Get("currentPage"), meta.Get("totalPages"); cur.Exists() || total.Exists() {
		m.CurrentPage = asInt(cur)
		m.TotalPages = asInt(total)
		m.Shape = ShapeMeta
		return m
	}

	if c := firstString(meta.Get("nextCursor"), root.Get("nextCursor")); c.Exists() {
		m.Cursor = c.String()
		m.Shape = ShapeCursor
		return m
	}

	if root.Get("total").Exists() && root.Get("page").Exists() {
		m.CurrentPage = asInt(root.Get("page"))
		if m.Limit > 0 {
			m.TotalPages = (m.Total + m.Limit - 1) / m.Limit
		}
		m.Shape = ShapeTotals
		return m
	}
	return m
}

// Next returns the page after CurrentPage while CurrentPage < TotalPages.
func (m Meta) Next() (int, bool) {
	switch m.Shape {
	case ShapeMeta, ShapeTotals:
		if m.CurrentPage < m.TotalPages {
			return m.CurrentPage + 1, true
		}
	}
	return 0, false
}

// NextAfter is Next for a sequence of loaded pages. A missing current page
// falls back to loaded, and a missing total to a single page.
func (m Meta) NextAfter(loaded int) (int, bool) {
	if m.Shape == ShapeCursor {
		return 0, false
	}
	cur, total := m.CurrentPage, m.TotalPages
	if cur == 0 {
		cur = loaded
	}
	if total == 0 {
		total = 1
	}
	if cur < total {
		return cur + 1, true
	}
	return 0, false
}

// NextCursor returns the opaque cursor of the following page.
func (m Meta) NextCursor() (string, bool) {
	if m.Shape != ShapeCursor || m.Cursor == "" {
		return "", false
	}
	return m.Cursor, true
}

// HasMore reports whether another page follows.
func (m Meta) HasMore() bool {
	if _, ok := m.Next(); ok {
		return true
	}
	_, ok := m.NextCursor()
	return ok
}

// NextByCount derives the next page for endpoints without paging metadata:
// a full last page means another may follow. loaded is the number of pages
// loaded so far and lastCount the item count of the last one.
func NextByCount(loaded, lastCount, pageSize int) (int, bool) {
	if pageSize <= 0 || lastCount < pageSize {
		return 0, false
	}
	return loaded + 1, true
}

func asInt(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func firstString(rs ...gjson.Result) gjson.Result {
	for _, r := range rs {
		if r.Type == gjson.String && r.Str != "" {
			return r
		}
	}
	return gjson.Result{}
}
