package handler

import (
	"net"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"case-migrator/internal/casestore"
	"case-migrator/internal/migrations"
	"case-migrator/internal/model"
	"case-migrator/internal/runner"
)

const seedCases = `[
	{"id": 1, "state": "Draft", "created_date": "2024-01-01T00:00:00", "case_data": {}},
	{"id": 2, "state": "AwaitingPayment", "created_date": "2024-01-01T00:00:00", "case_data": {}}
]`

type testServer struct {
	client *fasthttp.Client
	ln     *fasthttputil.InmemoryListener
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	reg := migrations.New(logger)
	store := casestore.NewMemory()
	run := runner.New(reg, store, store, store, logger, runner.Options{})
	h := New(reg, store, run, logger)

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h.Handle}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &testServer{
		ln: ln,
		client: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

func (s *testServer) do(t *testing.T, method, uri, body string) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://migrator" + uri)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}
	require.NoError(t, s.client.Do(req, resp))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func TestCasesRoundTrip(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fasthttp.MethodPost, "/cases", seedCases)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	assert.JSONEq(t, `{"stored":2}`, string(body))

	status, body = s.do(t, fasthttp.MethodGet, "/cases/2", "")
	require.Equal(t, fasthttp.StatusOK, status)
	c := decode[model.CaseDetails](t, body)
	assert.Equal(t, model.StateAwaitingPayment, c.State)

	status, _ = s.do(t, fasthttp.MethodGet, "/cases/99", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)

	status, _ = s.do(t, fasthttp.MethodGet, "/cases/abc", "")
	assert.Equal(t, fasthttp.StatusBadRequest, status)

	status, _ = s.do(t, fasthttp.MethodPost, "/cases", "{")
	assert.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestListMigrations(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fasthttp.MethodGet, "/migrations", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"migrations":["ADOP-2555","ADOP-2555-suspend","ADOP-log"]}`, string(body))
}

func TestGetQuery(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fasthttp.MethodGet, "/migrations/ADOP-log/query?size=10&from=20", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"query":{"bool":{"must":[{"match":{"state":"Draft"}}]}},"size":10,"from":20}`, string(body))

	status, body = s.do(t, fasthttp.MethodGet, "/migrations/NOT_A_MIGRATION/query", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
	errResp := decode[model.ErrorResponse](t, body)
	assert.Contains(t, errResp.Message, "NOT_A_MIGRATION")

	status, _ = s.do(t, fasthttp.MethodGet, "/migrations/ADOP-log/query?size=0", "")
	assert.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fasthttp.MethodPost, "/migrations/ADOP-2555/preview",
		`{"id": 7, "state": "Draft", "created_date": "2024-01-01T00:00:00", "case_data": {}}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	env := decode[model.UpdateEnvelope](t, body)
	assert.Equal(t, int64(7), env.CaseID)
	assert.Equal(t, model.MergePartial, env.Mode)
	assert.Equal(t, map[string]any{"OverrideTTL": nil, "Suspended": "No", "SystemTTL": "2024-03-31"}, env.Data["TTL"])

	status, body = s.do(t, fasthttp.MethodPost, "/migrations/ADOP-2555/preview",
		`{"id": 8, "state": "Closed", "case_data": {}}`)
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, status)
	assert.Contains(t, decode[model.ErrorResponse](t, body).Message, "8")
}

func TestRun(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, fasthttp.MethodPost, "/cases", seedCases)
	require.Equal(t, fasthttp.StatusOK, status)

	status, body := s.do(t, fasthttp.MethodPost, "/migrations/ADOP-2555/run", `{"dry_run": false}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	report := decode[model.RunReport](t, body)
	assert.Equal(t, model.OutcomePartial, report.RunMetadata.RunOutcome)
	assert.Equal(t, 1, report.Counts.Migrated)
	assert.Equal(t, 1, report.Counts.Failed)

	status, _ = s.do(t, fasthttp.MethodPost, "/migrations/NOT_A_MIGRATION/run", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
}

func TestRunWithoutSelectionQueryNeedsCaseIDs(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, fasthttp.MethodPost, "/cases", seedCases)
	require.Equal(t, fasthttp.StatusOK, status)

	status, body := s.do(t, fasthttp.MethodPost, "/migrations/ADOP-2555-suspend/run", `{"dry_run": true}`)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Contains(t, decode[model.ErrorResponse](t, body).Message, "pass case_ids")

	status, body = s.do(t, fasthttp.MethodPost, "/migrations/ADOP-2555-suspend/run", `{"case_ids": [1], "dry_run": true}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	assert.Equal(t, 1, decode[model.RunReport](t, body).Counts.Migrated)
}

func TestCasesKeepLargeNumbers(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, fasthttp.MethodPost, "/cases",
		`[{"id": 9, "state": "Draft", "created_date": "2024-01-01T09:30", "case_data": {"ref": 9007199254740993}}]`)
	require.Equal(t, fasthttp.StatusOK, status)

	status, body := s.do(t, fasthttp.MethodGet, "/cases/9", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), `"ref":9007199254740993`)
}

func TestRouting(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fasthttp.MethodGet, "/nowhere", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)

	status, _ = s.do(t, fasthttp.MethodDelete, "/migrations", "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, status)
}
