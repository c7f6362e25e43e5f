package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nitipat21/linkly/pkg/core/domain"
	"github.com/nitipat21/linkly/pkg/core/services"
	"github.com/nitipat21/linkly/pkg/metrics"
	"github.com/nitipat21/linkly/pkg/ports"
)

const genericErrorMessage = "something went wrong, please try again later"

type LinkHandler struct {
	service ports.LinkService
	baseURL string
	logger  *slog.Logger
}

func NewLinkHandler(service ports.LinkService, baseURL string, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{service: service, baseURL: baseURL, logger: logger}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	URL        string  `json:"url"`
	CustomCode string  `json:"custom_code,omitempty"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
}

// UpdateLinkRequest payload. ExpiresAt is kept raw so an explicit null
// (clear the expiry) can be told apart from an absent field (keep it).
type UpdateLinkRequest struct {
	URL        *string         `json:"url"`
	CustomCode *string         `json:"custom_code"`
	ExpiresAt  json.RawMessage `json:"expires_at"`
}

// LinkResponse is the creation result.
type LinkResponse struct {
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

// StatsResponse matches the persisted record layout without storage ids.
type StatsResponse struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	Clicks      int64      `json:"clicks"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// POST /api/url/create
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := parseExpiry(*req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expiration date format")
			return
		}
		expiresAt = &t
	}

	in := ports.CreateLinkInput{
		URL:        req.URL,
		CustomCode: req.CustomCode,
		ExpiresAt:  expiresAt,
		Origin:     clientOrigin(r),
	}
	if requester, ok := RequesterFrom(r.Context()); ok {
		in.Requester = &requester
	}

	link, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	metrics.LinksCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, LinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, link.ShortCode),
		OriginalURL: link.OriginalURL,
	})
}

// GET /{code} - redirect to the original URL
func (h *LinkHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing short code")
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			metrics.RedirectTotal.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "short URL not found")
		case errors.Is(err, domain.ErrDeactivated):
			metrics.RedirectTotal.WithLabelValues("gone").Inc()
			writeError(w, http.StatusGone, "this URL has been deactivated")
		case errors.Is(err, domain.ErrExpired):
			metrics.RedirectTotal.WithLabelValues("gone").Inc()
			writeError(w, http.StatusGone, "this URL has expired")
		default:
			h.serviceError(w, r, err)
		}
		return
	}

	metrics.RedirectTotal.WithLabelValues("success").Inc()
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// PATCH /api/url/update/{code}
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := RequesterFrom(r.Context())

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.LinkPatch{
		OriginalURL: req.URL,
		ShortCode:   req.CustomCode,
	}
	if len(req.ExpiresAt) > 0 {
		if string(req.ExpiresAt) == "null" {
			patch.ClearExpiry = true
		} else {
			var raw string
			if err := json.Unmarshal(req.ExpiresAt, &raw); err != nil {
				writeError(w, http.StatusBadRequest, "invalid expiration date format")
				return
			}
			t, err := parseExpiry(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid expiration date format")
				return
			}
			patch.ExpiresAt = &t
		}
	}

	link, err := h.service.Update(r.Context(), code, patch, requester)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"short_code":   link.ShortCode,
		"original_url": link.OriginalURL,
		"expires_at":   link.ExpiresAt,
	})
}

// DELETE /api/url/delete/{code}
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := RequesterFrom(r.Context())

	if err := h.service.Delete(r.Context(), code, requester); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// One outcome for unknown code and non-owner, so existence
			// never leaks.
			writeError(w, http.StatusNotFound, "URL not found or you don't have permission to delete it")
			return
		}
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "URL deleted successfully"})
}

// PATCH /api/url/deactivate/{code}
func (h *LinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := h.service.Deactivate(r.Context(), code); err != nil {
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "short URL has been deactivated"})
}

// GET /api/url/stats/{code}
func (h *LinkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := RequesterFrom(r.Context())

	link, err := h.service.Stats(r.Context(), code, requester)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.ClickCount,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
		CreatedAt:   link.CreatedAt,
	})
}

// GET /api/url/user
func (h *LinkHandler) ListUserLinks(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFrom(r.Context())

	links, err := h.service.ListByOwner(r.Context(), requester)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": links})
}

// serviceError maps domain errors to status codes; anything unexpected is
// logged and surfaced as a generic 500.
func (h *LinkHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCodeExists):
		writeError(w, http.StatusConflict, "custom short URL already in use, please try another")
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusForbidden, "guest limit reached, please log in to create more URLs")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "unauthorized access")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "URL not found")
	case errors.Is(err, services.ErrGenerateExhausted):
		writeError(w, http.StatusConflict, "could not allocate a short code, please retry")
	default:
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
	}
}

// parseExpiry accepts RFC 3339 timestamps and plain dates.
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// clientOrigin returns the network origin of the request, honouring the
// first X-Forwarded-For hop when a proxy sits in front.
func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
