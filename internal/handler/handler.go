package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"case-migrator/internal/casestore"
	"case-migrator/internal/migrations"
	"case-migrator/internal/model"
	"case-migrator/internal/query"
	"case-migrator/internal/runner"
	"case-migrator/internal/update"
)

const (
	defaultQuerySize = 100
	maxQuerySize     = 10000
)

type Registry interface {
	runner.Migrator
	IDs() []string
}

type Store interface {
	Put(cases ...*model.CaseDetails)
	Get(ctx context.Context, id int64) (*model.CaseDetails, error)
}

type Runner interface {
	Run(ctx context.Context, req model.RunRequest) (*model.RunReport, error)
}

type Handler struct {
	registry Registry
	store    Store
	runner   Runner
	logger   zerolog.Logger
}

func New(registry Registry, store Store, runner Runner, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		store:    store,
		runner:   runner,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Handle routes:
//
//	POST /cases                     seed cases
//	GET  /cases/{id}                fetch a case
//	GET  /migrations                list migration ids
//	GET  /migrations/{id}/query     rendered selection query (?size=&from=)
//	POST /migrations/{id}/preview   update envelope for the posted case
//	POST /migrations/{id}/run       run over selected or listed cases
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "cases":
		h.requireMethod(ctx, fasthttp.MethodPost, h.putCases)
	case len(parts) == 2 && parts[0] == "cases":
		h.requireMethod(ctx, fasthttp.MethodGet, func(ctx *fasthttp.RequestCtx) { h.getCase(ctx, parts[1]) })
	case len(parts) == 1 && parts[0] == "migrations":
		h.requireMethod(ctx, fasthttp.MethodGet, h.listMigrations)
	case len(parts) == 3 && parts[0] == "migrations" && parts[2] == "query":
		h.requireMethod(ctx, fasthttp.MethodGet, func(ctx *fasthttp.RequestCtx) { h.getQuery(ctx, parts[1]) })
	case len(parts) == 3 && parts[0] == "migrations" && parts[2] == "preview":
		h.requireMethod(ctx, fasthttp.MethodPost, func(ctx *fasthttp.RequestCtx) { h.preview(ctx, parts[1]) })
	case len(parts) == 3 && parts[0] == "migrations" && parts[2] == "run":
		h.requireMethod(ctx, fasthttp.MethodPost, func(ctx *fasthttp.RequestCtx) { h.run(ctx, parts[1]) })
	default:
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

func (h *Handler) requireMethod(ctx *fasthttp.RequestCtx, method string, next fasthttp.RequestHandler) {
	if string(ctx.Method()) != method {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	next(ctx)
}

func (h *Handler) putCases(ctx *fasthttp.RequestCtx) {
	var cases []*model.CaseDetails
	if err := model.DecodeJSONBytes(ctx.PostBody(), &cases); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	for i, c := range cases {
		if c == nil {
			writeError(ctx, fasthttp.StatusBadRequest, "Case "+strconv.Itoa(i)+" is null")
			return
		}
	}
	h.store.Put(cases...)
	writeJSON(ctx, fasthttp.StatusOK, map[string]int{"stored": len(cases)})
}

func (h *Handler) getCase(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid case id: "+rawID)
		return
	}
	c, err := h.store.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, c)
}

func (h *Handler) listMigrations(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string][]string{"migrations": h.registry.IDs()})
}

func (h *Handler) getQuery(ctx *fasthttp.RequestCtx, id string) {
	size, err := intArg(ctx, "size", defaultQuerySize)
	if err != nil || size <= 0 || size > maxQuerySize {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid size")
		return
	}
	from, err := intArg(ctx, "from", 0)
	if err != nil || from < 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid from")
		return
	}

	q, err := h.registry.Query(id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, query.ToQueryContext(q, size, from))
}

func (h *Handler) preview(ctx *fasthttp.RequestCtx, id string) {
	var c model.CaseDetails
	if err := model.DecodeJSONBytes(ctx.PostBody(), &c); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	payload, err := h.registry.Migrate(&c, id)
	if err != nil {
		h.logger.Warn().Err(err).Str("migration_id", id).Int64("case_id", c.ID).Msg("preview failed")
		writeFailure(ctx, err)
		return
	}
	mode, err := h.registry.Mode(id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	env, err := update.Produce(&c, id, mode, payload)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, env)
}

func (h *Handler) run(ctx *fasthttp.RequestCtx, id string) {
	var req model.RunRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	req.MigrationID = id

	report, err := h.runner.Run(ctx, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, report)
}

func intArg(ctx *fasthttp.RequestCtx, key string, def int) (int, error) {
	v := ctx.QueryArgs().Peek(key)
	if len(v) == 0 {
		return def, nil
	}
	return strconv.Atoi(string(v))
}

// writeFailure maps core errors to HTTP statuses.
func writeFailure(ctx *fasthttp.RequestCtx, err error) {
	status := fasthttp.StatusInternalServerError
	switch {
	case errors.Is(err, migrations.ErrUnknownMigration), errors.Is(err, casestore.ErrCaseNotFound):
		status = fasthttp.StatusNotFound
	case errors.Is(err, migrations.ErrNullArgument), errors.Is(err, runner.ErrNoSelectionQuery):
		status = fasthttp.StatusBadRequest
	case errors.Is(err, migrations.ErrMissingExpectedField),
		errors.Is(err, migrations.ErrInvalidState),
		errors.Is(err, model.ErrTypeMismatch):
		status = fasthttp.StatusUnprocessableEntity
	}
	writeError(ctx, status, err.Error())
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "Encode response: "+err.Error())
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	b, _ := json.Marshal(model.ErrorResponse{
		Status:  status,
		Message: message,
	})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(b)
}
