// Package casestore is an in-memory case store that plays the case source,
// search index and update sink for migration runs.
package casestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"case-migrator/internal/model"
	"case-migrator/internal/query"
	"case-migrator/internal/update"
)

var ErrCaseNotFound = errors.New("case not found")

type Memory struct {
	mu    sync.RWMutex
	cases map[int64]*model.CaseDetails
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		cases: make(map[int64]*model.CaseDetails),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Put stores copies of cases, replacing any with the same id.
func (m *Memory) Put(cases ...*model.CaseDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cases {
		m.cases[c.ID] = c.Clone()
	}
}

// Load seeds the store from a JSON array of cases and returns how many were read.
func (m *Memory) Load(r io.Reader) (int, error) {
	var cases []*model.CaseDetails
	if err := model.DecodeJSON(r, &cases); err != nil {
		return 0, fmt.Errorf("decode cases: %w", err)
	}
	m.Put(cases...)
	return len(cases), nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cases)
}

// Get returns a snapshot of case id that later updates do not touch.
func (m *Memory) Get(_ context.Context, id int64) (*model.CaseDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrCaseNotFound, id)
	}
	return c.Clone(), nil
}

// Search evaluates the query against every case, ordered by id, and returns
// the requested page along with the total number of hits.
func (m *Memory) Search(ctx context.Context, qc query.Context) ([]*model.CaseDetails, int, error) {
	if qc.Query == nil {
		return nil, 0, errors.New("search: query is required")
	}
	if qc.Size < 0 || qc.From < 0 {
		return nil, 0, fmt.Errorf("search: invalid page size=%d from=%d", qc.Size, qc.From)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.cases))
	for id := range m.cases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var hits []*model.CaseDetails
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		c := m.cases[id]
		doc, err := document(c)
		if err != nil {
			return nil, 0, fmt.Errorf("search: case %d: %w", id, err)
		}
		if qc.Query.Matches(doc) {
			hits = append(hits, c)
		}
	}

	total := len(hits)
	if qc.From >= total {
		return []*model.CaseDetails{}, total, nil
	}
	end := min(qc.From+qc.Size, total)

	page := make([]*model.CaseDetails, 0, end-qc.From)
	for _, c := range hits[qc.From:end] {
		page = append(page, c.Clone())
	}
	return page, total, nil
}

// Apply merges an update envelope into the stored case.
func (m *Memory) Apply(_ context.Context, env *model.UpdateEnvelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cases[env.CaseID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrCaseNotFound, env.CaseID)
	}
	merged, err := update.Merge(c.Data, env)
	if err != nil {
		return fmt.Errorf("apply to case %d: %w", env.CaseID, err)
	}

	next := *c
	next.Data = merged
	next.LastModified = model.DateTime{Time: m.now()}
	m.cases[env.CaseID] = &next
	return nil
}

// document is the shape the search index sees: top-level metadata with the
// case data under "data".
func document(c *model.CaseDetails) (map[string]any, error) {
	b, err := json.Marshal(struct {
		ID    int64      `json:"id"`
		State string     `json:"state"`
		Data  model.Data `json:"data"`
	}{ID: c.ID, State: c.State, Data: c.Data})
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := model.DecodeJSONBytes(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
