// Package httpapi exposes the recommendation engine over a chi-routed
// JSON API.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
	healthuc "github.com/brightbasket/reko/internal/usecase/health"
	recommenduc "github.com/brightbasket/reko/internal/usecase/recommend"
	"github.com/brightbasket/reko/internal/version"
)

// maxImageBytes bounds decoded image payloads.
const maxImageBytes = 4 << 20

// maxBodyBytes bounds the request body; base64 inflates images by 4/3.
const maxBodyBytes = 6 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SnapshotSource exposes the currently published catalog snapshot.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// Server holds the HTTP handlers.
type Server struct {
	recommend     *recommenduc.Service
	health        *healthuc.Service
	snaps         SnapshotSource
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	health *healthuc.Service,
	snaps SnapshotSource,
	logger *zap.Logger,
) *Server {
	s := &Server{
		recommend: recommend,
		health:    health,
		snaps:     snaps,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, CodeProductNotFound),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeEmptyQuery),
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, CodeInvalidImage),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEncoderError, http.StatusBadGateway, CodeEncoderError),
	}
	return s
}

// Routes mounts all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.Search)
	r.Get("/v1/similar/{id}", s.Similar)
	r.Get("/v1/products/{id}", s.GetProduct)
	r.Get("/v1/meta", s.Meta)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/version", s.Version)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	hasQuery := strings.TrimSpace(req.Query) != ""
	hasImage := req.ImageBase64 != ""
	if !hasQuery && !hasImage {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Either query or image_base64 is required")
		return
	}

	spec := req.Constraints.toSpec()

	var (
		res recommenduc.Result
		err error
	)
	switch {
	case hasQuery && hasImage:
		var image []byte
		if image, err = decodeImage(req.ImageBase64); err == nil {
			res, err = s.recommend.SearchImageAndText(r.Context(), image, req.Query, spec, req.TopK)
		}
	case hasImage:
		var image []byte
		if image, err = decodeImage(req.ImageBase64); err == nil {
			res, err = s.recommend.SearchImage(r.Context(), image, spec, req.TopK)
		}
	default:
		res, err = s.recommend.SearchText(r.Context(), req.Query, spec, req.TopK)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:       itemDTOs(s.snaps.Current(), res.Items),
		Diagnostics: res.Diagnostics,
	})
}

// Similar handles GET /v1/similar/{id}.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "top_k must be an integer")
			return
		}
		topK = n
	}

	res, err := s.recommend.SimilarToID(r.Context(), id, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:       itemDTOs(s.snaps.Current(), res.Items),
		Diagnostics: res.Diagnostics,
	})
}

// GetProduct handles GET /v1/products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap := s.snaps.Current()
	idx, ok := snap.IndexOf(id)
	if !ok {
		s.handleDomainError(w, fmt.Errorf("product %q: %w", id, domain.ErrProductNotFound))
		return
	}

	writeJSON(w, http.StatusOK, productDTO(snap.Product(idx)))
}

// Meta handles GET /v1/meta.
func (s *Server) Meta(w http.ResponseWriter, r *http.Request) {
	snap := s.snaps.Current()
	priceMin, priceMax := snap.PriceRange()

	writeJSON(w, http.StatusOK, MetaResponse{
		Count:      snap.Len(),
		Dims:       snap.Dims(),
		Brands:     snap.Brands(),
		Categories: snap.Categories(),
		PriceMin:   priceMin,
		PriceMax:   priceMax,
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Version handles GET /version.
func (s *Server) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeImage accepts plain or data-URL base64 and enforces the size cap.
func decodeImage(b64 string) ([]byte, error) {
	if i := strings.IndexByte(b64, ','); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, fmt.Errorf("empty image payload: %w", domain.ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(b64)) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", maxImageBytes, domain.ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(b64)
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", domain.ErrInvalidImage)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", maxImageBytes, domain.ErrInvalidImage)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProductNotFound,
		domain.ErrEmptyQuery,
		domain.ErrInvalidImage,
		domain.ErrVectorDimMismatch,
		domain.ErrEncoderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
