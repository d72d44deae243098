// Package chi exposes the directory over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
	healthuc "github.com/kailas-cloud/directory/internal/usecase/health"
	mediauc "github.com/kailas-cloud/directory/internal/usecase/media"
)

const (
	maxQueryBody      = 1 << 20
	maxBusinessBody   = 1 << 20
	multipartOverhead = 1 << 20
	imageFormField    = "image"
	kindFormField     = "kind"
)

// BusinessService is the business use case consumed by the handlers.
type BusinessService interface {
	List(ctx context.Context, raw map[string]string) (domfilter.Result, error)
	Get(ctx context.Context, id string) (dombiz.Business, error)
	Create(ctx context.Context, owner string, attrs dombiz.Attributes) (dombiz.Business, error)
	Update(ctx context.Context, owner, id string, p dombiz.Patch) (dombiz.Business, error)
	Delete(ctx context.Context, owner, id string) error
}

// MediaService is the image use case consumed by the handlers.
type MediaService interface {
	Upload(ctx context.Context, owner, id string, kind dombiz.MediaKind, up mediauc.Upload) (dombiz.Business, string, error)
	Delete(ctx context.Context, owner, id, key string) (dombiz.Business, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the directory API.
type Server struct {
	businesses     BusinessService
	media          MediaService
	health         HealthChecker
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	businesses BusinessService,
	media MediaService,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		businesses:     businesses,
		media:          media,
		health:         health,
		logger:         logger,
		maxUploadBytes: mediauc.DefaultMaxImageSize,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// WithMaxUploadBytes bounds the accepted image size.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/businesses", func(r chi.Router) {
		r.Get("/", s.ListBusinesses)
		r.Post("/", s.CreateBusiness)
		r.Post("/search", s.SearchBusinesses)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetBusiness)
			r.Patch("/", s.UpdateBusiness)
			r.Delete("/", s.DeleteBusiness)
			r.Post("/images", s.UploadImage)
			r.Delete("/images/*", s.DeleteImage)
		})
	})
}

// ListBusinesses handles GET /businesses.
func (s *Server) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	raw, err := domfilter.FromValues(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.list(w, r, raw)
}

// SearchBusinesses handles POST /businesses/search.
func (s *Server) SearchBusinesses(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	raw, err := domfilter.DecodeJSON(body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.list(w, r, raw)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, raw map[string]string) {
	res, err := s.businesses.List(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateBusiness handles POST /businesses.
func (s *Server) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var attrs dombiz.Attributes
	if !decodeBody(w, r, &attrs) {
		return
	}

	b, err := s.businesses.Create(r.Context(), owner, attrs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, businessResponse(b))
}

// GetBusiness handles GET /businesses/{id}.
func (s *Server) GetBusiness(w http.ResponseWriter, r *http.Request) {
	b, err := s.businesses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, businessResponse(b))
}

// UpdateBusiness handles PATCH /businesses/{id}.
func (s *Server) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var p dombiz.Patch
	if !decodeBody(w, r, &p) {
		return
	}

	b, err := s.businesses.Update(r.Context(), owner, chi.URLParam(r, "id"), p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, businessResponse(b))
}

// DeleteBusiness handles DELETE /businesses/{id}.
func (s *Server) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := s.businesses.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /businesses/{id}/images (multipart/form-data
// with a "kind" field and an "image" file).
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	kind, err := dombiz.ParseMediaKind(r.FormValue(kindFormField))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Missing image file")
		return
	}
	defer func() { _ = file.Close() }()

	b, key, err := s.media.Upload(r.Context(), owner, chi.URLParam(r, "id"), kind,
		mediauc.Upload{Body: file, Size: header.Size})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{Key: key, Business: businessResponse(b)})
}

// DeleteImage handles DELETE /businesses/{id}/images/{key}. The key may
// contain slashes.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	b, err := s.media.Delete(r.Context(), owner, chi.URLParam(r, "id"), chi.URLParam(r, "*"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, businessResponse(b))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBusinessBody)).Decode(v)
	if err == nil {
		return true
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
	return false
}
