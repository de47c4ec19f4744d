package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/service"

	"github.com/go-chi/chi/v5"
)

const version = "1.0"

type Handler struct {
	linkService *service.LinkService
	environment string
	startTime   time.Time
}

func NewHandler(linkService *service.LinkService, environment string) *Handler {
	return &Handler{
		linkService: linkService,
		environment: environment,
		startTime:   time.Now(),
	}
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps service error kinds to transport status codes. The
// mapping lives here only; the service layer never sees HTTP.
func respondError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Something went wrong"})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindInvalidInput:
		status = http.StatusBadRequest
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindGenerationExhausted, service.KindStore:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, map[string]string{"error": svcErr.Message})
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	link, err := h.linkService.CreateLink(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Link created successfully",
		"data":    link,
	})
}

func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	search := r.URL.Query().Get("search")

	links, total, err := h.linkService.ListLinks(r.Context(), page, limit, search)
	if err != nil {
		respondError(w, err)
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	respondJSON(w, http.StatusOK, map[string]any{
		"data": links,
		"pagination": pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	link, err := h.linkService.GetLink(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": link})
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.linkService.DeleteLink(r.Context(), code); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Link deleted successfully",
		"data":    map[string]string{"code": code},
	})
}

// Redirect resolves a short code, accounts the visit and issues a 302. The
// accounting happens before the redirect is written; a request that never
// reaches the store records nothing.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	link, err := h.linkService.RecordVisit(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}
	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"version":     version,
		"uptime":      time.Since(h.startTime).Seconds(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

func SetupRoutes(r *chi.Mux, handler *Handler) {
	r.Get("/healthz", handler.HealthCheck)
	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", handler.CreateLink)
		r.Get("/", handler.ListLinks)
		r.Get("/{code}", handler.GetLink)
		r.Delete("/{code}", handler.DeleteLink)
	})
	r.Get("/{code:[A-Za-z0-9]{6,8}}", handler.Redirect)
}
