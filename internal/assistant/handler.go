package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/pulse-platform/assistant/internal/api"
	"github.com/pulse-platform/assistant/internal/auth"
	"github.com/pulse-platform/assistant/internal/classifier"
	"github.com/pulse-platform/assistant/internal/governance/audit"
	"github.com/pulse-platform/assistant/internal/governance/quota"
	inats "github.com/pulse-platform/assistant/internal/nats"
	"github.com/pulse-platform/assistant/internal/provider"
)

// Handler provides the HTTP surface for the assistant endpoints.
type Handler struct {
	svc        *Service
	auditRepo  *audit.Repository
	classifier *classifier.Classifier
	provider   provider.Client
	taxonomy   classifier.Taxonomy
	defaultCat string
	validate   *validator.Validate
}

func NewHandler(svc *Service, auditRepo *audit.Repository, providerClient provider.Client, taxonomy classifier.Taxonomy, defaultCategory string) *Handler {
	return &Handler{
		svc:        svc,
		auditRepo:  auditRepo,
		classifier: classifier.New(providerClient, taxonomy, defaultCategory),
		provider:   providerClient,
		taxonomy:   taxonomy,
		defaultCat: defaultCategory,
		validate:   validator.New(),
	}
}

// Ask answers one free-text message.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	ident := identityFromContext(r)
	resp, err := h.svc.Ask(r.Context(), ident, req)
	if err != nil {
		h.handleAskError(w, r, ident, err)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

// Expand re-answers a prior query with the requested expansion kind.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	ident := identityFromContext(r)
	resp, err := h.svc.Expand(r.Context(), ident, req)
	if err != nil {
		if errors.Is(err, ErrExpansionConsumed) {
			api.HandleError(w, &api.AppError{Code: http.StatusConflict, Message: "expansion already used for this query"})
			return
		}
		h.handleAskError(w, r, ident, err)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

// Status returns the quota and cache snapshot for display. Anonymous
// callers get the default full-remaining pools.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.svc.Status(r.Context(), identityFromContext(r)))
}

// ClearCache drops every cached response. Restricted to configured admins.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ClearCache(r.Context(), identityFromContext(r))
	if err != nil {
		if errors.Is(err, errForbidden) {
			api.HandleError(w, api.ErrForbidden)
			return
		}
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

// ListAuditLogs returns the authenticated user's paginated usage history.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	if h.auditRepo == nil {
		api.JSONPaginated(w, http.StatusOK, []audit.Entry{}, 0, 1, 0)
		return
	}

	params := parseAuditParams(r)
	entries, total, err := h.auditRepo.ListByUser(r.Context(), claims.UserID, params)
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

// Classify labels a title/description pair against the taxonomy.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	c := h.classifier
	if len(req.Categories) > 0 {
		sub, err := h.taxonomy.Subset(req.Categories)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError(err.Error()))
			return
		}
		c = classifier.New(h.provider, sub, h.defaultCat)
	}

	result, err := c.Classify(r.Context(), req.Title, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, classifier.ErrMissingTitle):
			api.HandleError(w, api.NewBadRequestError("title is required"))
		case errors.Is(err, provider.ErrUnavailable):
			api.HandleError(w, api.ErrProviderUnavailable)
		default:
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	h.svc.publish(r.Context(), identityFromContext(r), inats.EventClassified, "", "", result.Category)

	api.JSON(w, http.StatusOK, ClassifyResponse{
		Category:          result.Category,
		RawProviderOutput: result.RawOutput,
	})
}

// handleAskError maps the shared ask/expand error cases. Quota denials are
// a distinct, structured 429 so the UI can render a countdown instead of a
// generic failure.
func (h *Handler) handleAskError(w http.ResponseWriter, r *http.Request, ident *Identity, err error) {
	var qerr *QuotaError
	switch {
	case errors.As(err, &qerr):
		api.JSON(w, http.StatusTooManyRequests, DeniedResponse{
			Pool:  qerr.Kind,
			View:  qerr.View,
			Quota: h.svc.QuotaStatus(r.Context(), ident),
		})
	case errors.Is(err, quota.ErrNoIdentity):
		api.HandleError(w, api.ErrUnauthorized)
	case errors.Is(err, provider.ErrUnavailable):
		api.HandleError(w, api.ErrProviderUnavailable)
	case errors.Is(err, provider.ErrNotConfigured):
		api.HandleError(w, api.ErrInternalServer)
	default:
		api.HandleError(w, api.ErrInternalServer)
	}
}

func identityFromContext(r *http.Request) *Identity {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return nil
	}
	return &Identity{UserID: claims.UserID, Username: claims.Username}
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()
	q := r.URL.Query()

	if v := q.Get("event_type"); v != "" {
		params.EventType = v
	}
	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			params.Page = page
		}
	}
	if v := q.Get("page_size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 && size <= 100 {
			params.PageSize = size
		}
	}
	return params
}