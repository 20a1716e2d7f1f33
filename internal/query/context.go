package query

import (
	json "github.com/goccy/go-json"
)

// Context is a page-bounded search request body. It does not run anything.
type Context struct {
	Query Query `json:"query"`
	Size  int   `json:"size"`
	From  int   `json:"from"`
}

// ToQueryContext renders q for one page of size hits starting at offset from.
func ToQueryContext(q Query, size, from int) Context {
	return Context{Query: q, Size: size, From: from}
}

// JSON renders the search body. The output depends only on the clause tree and the page bounds.
func (c Context) JSON() ([]byte, error) {
	return json.Marshal(c)
}

func (c Context) String() string {
	b, err := c.JSON()
	if err != nil {
		return "<invalid query: " + err.Error() + ">"
	}
	return string(b)
}
