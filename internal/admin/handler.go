// Package admin exposes the proxy endpoints the back-office screens call:
// list, detail and mutation routes per resource, each guarded by the
// authorization middleware before the query layer is driven.
package admin

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-logistics/backoffice/internal/authz"
	"github.com/meridian-logistics/backoffice/internal/gateway"
	"github.com/meridian-logistics/backoffice/internal/platform/httpx"
	"github.com/meridian-logistics/backoffice/internal/query"
	"github.com/meridian-logistics/backoffice/internal/resources"
	"github.com/meridian-logistics/backoffice/internal/session"
)

// LoginPath is where clients are sent after session expiry.
const LoginPath = "/auth/login"

// tierParam is the reserved query parameter a screen may use to override the
// staleness tier. It never reaches the upstream.
const tierParam = "_tier"

// Handler proxies screen requests through the query orchestrator.
type Handler struct {
	logger   *slog.Logger
	orch     *query.Orchestrator
	sessions *session.Store
	guard    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, orch *query.Orchestrator, sessions *session.Store, guard authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		orch:     orch,
		sessions: sessions,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers the per-resource proxy routes.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range resources.All() {
		res := res

		// Public list variant, no guard by design.
		r.Get("/"+resources.OpenPath(res), h.list(res, true))

		r.Route("/"+resources.BasePath(res), func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, authz.OpRead))
				r.Get("/", h.list(res, false))
				r.Get("/{id}", h.detail(res))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, authz.OpCreate))
				r.Post("/", h.mutate(res, resources.VerbCreate))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, authz.OpUpdate))
				r.Put("/{id}", h.mutate(res, resources.VerbUpdate))
				r.Patch("/{id}", h.mutate(res, resources.VerbPatch))
				r.Post("/toggle-status", h.mutate(res, resources.VerbToggleStatus))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.guard.Require(res, authz.OpDelete))
				r.Post("/delete", h.mutate(res, resources.VerbDelete))
			})
			if res == resources.Users {
				r.Group(func(r chi.Router) {
					r.Use(h.guard.Require(res, authz.OpUpdate))
					r.Post("/change-password", h.mutate(res, resources.VerbChangePassword))
				})
			}
		})
	}
}

func (h *Handler) list(res resources.Resource, open bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, opts := readParams(r)
		if open {
			opts = append(opts, query.WithOpenEndpoint())
		}
		env, err := h.orch.Read(r.Context(), res, params, opts...)
		h.respond(w, r, env, err)
	}
}

func (h *Handler) detail(res resources.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, opts := readParams(r)
		env, err := h.orch.ReadDetail(r.Context(), res, chi.URLParam(r, "id"), params, opts...)
		h.respond(w, r, env, err)
	}
}

func (h *Handler) mutate(res resources.Resource, verb resources.Verb) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := httpx.DecodeJSON(r, &payload); err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON object")
				return
			}
		}
		// Record-addressing verbs take the id from the payload itself; fold
		// the route id in when the body omits it.
		if id := chi.URLParam(r, "id"); id != "" {
			if _, ok := payload["id"]; !ok {
				payload["id"] = id
			}
		}
		if verb != resources.VerbCreate {
			if err := h.validate.Var(payload["id"], "required"); err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Missing ID", "mutation payload requires an id")
				return
			}
		}
		env, err := h.orch.Mutate(r.Context(), res, verb, payload)
		h.respond(w, r, env, err)
	}
}

// respond is the single top-level session-expiry handler: it clears the
// session store and answers with a login redirect instead of letting the
// transport navigate.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, env *gateway.Envelope, err error) {
	if err != nil {
		if errors.Is(err, gateway.ErrSessionExpired) {
			if clearErr := h.sessions.Clear(r.Context()); clearErr != nil {
				h.logger.Error("clear session", slog.Any("error", clearErr))
			}
			httpx.JSON(w, http.StatusUnauthorized, map[string]string{"redirect": LoginPath})
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away; nothing useful to write.
			return
		}
		httpx.RespondError(w, err)
		return
	}
	status := env.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	httpx.JSON(w, status, env)
}

// readParams flattens the query string into orchestrator params, extracting
// the reserved tier override.
func readParams(r *http.Request) (map[string]string, []query.ReadOption) {
	values := r.URL.Query()
	params := make(map[string]string, len(values))
	var opts []query.ReadOption
	for key := range values {
		if key == tierParam {
			switch query.Tier(values.Get(key)) {
			case query.TierLong, query.TierMedium, query.TierShort, query.TierNone:
				opts = append(opts, query.WithTier(query.Tier(values.Get(key))))
			}
			continue
		}
		params[key] = values.Get(key)
	}
	return params, opts
}
