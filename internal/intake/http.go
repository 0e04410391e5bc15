package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

// HTTPHandler exposes the intake pipeline over multipart uploads.
type HTTPHandler struct {
	service      *Service
	refs         *artifact.MemoryRegistry
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
	router       chi.Router
}

// refsPath is where payloads held by the memory registry are served.
const refsPath = "/refs/"

// HandlerParams configure an HTTPHandler. Refs is optional; when set,
// reference URLs it issued are served under /refs/{id} and released with
// DELETE /refs/{id}.
type HandlerParams struct {
	Service      *Service
	Refs         *artifact.MemoryRegistry
	Logger       *zap.Logger
	MaxSizeBytes int64
	FormMemBytes int64
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(p HandlerParams) *HTTPHandler {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPHandler{
		service:      p.Service,
		refs:         p.Refs,
		logger:       logger,
		maxSizeBytes: p.MaxSizeBytes,
		formMemBytes: p.FormMemBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/intake", h.handleIntake)
	if h.refs != nil {
		r.Get(refsPath+"{id}", h.handleReference)
		r.Delete(refsPath+"{id}", h.handleRevoke)
	}

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleIntake accepts one or more "files" parts. An optional "kind" field
// bypasses classification and an optional "rules" field carries a YAML or
// JSON rule document overriding the service defaults.
func (h *HTTPHandler) handleIntake(w http.ResponseWriter, r *http.Request) {
	if h.maxSizeBytes > 0 {
		if r.ContentLength > h.maxSizeBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeBytes)
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var opts Options
	if doc := r.MultipartForm.Value["rules"]; len(doc) > 0 && strings.TrimSpace(doc[0]) != "" {
		parsed, err := rules.Parse([]byte(doc[0]))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Rules = parsed
	}

	headers := r.MultipartForm.File["files"]
	files := make([]*media.File, 0, len(headers))
	for _, header := range headers {
		f, err := media.FromMultipart(header)
		if err != nil {
			h.logger.Error("read upload failed", zap.String("file", header.Filename), zap.Error(err))
			writeError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		files = append(files, f)
	}

	process := h.service.ProcessBatch
	if kinds := r.MultipartForm.Value["kind"]; len(kinds) > 0 && kinds[0] != "" {
		kind, err := media.ParseKind(kinds[0])
		if err != nil || kind == media.Generic {
			writeError(w, http.StatusBadRequest, "unknown kind")
			return
		}
		process = h.service.forKind(kind)
	}

	results, err := process(r.Context(), files, opts)
	if err != nil {
		var batchErr *BatchError
		switch {
		case errors.Is(err, ErrNoFilesProvided):
			writeError(w, http.StatusBadRequest, "files field is required")
		case errors.As(err, &batchErr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": batchErr.Message,
				"code":  string(batchErr.Code),
			})
		default:
			h.logger.Error("intake failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "intake failed")
		}
		return
	}

	if h.refs != nil {
		servable(results)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// servable rewrites memory registry URLs to the paths this handler serves
// them from. The artifacts' References keep the registry URL for Release.
func servable(results []Result) {
	for _, res := range results {
		for _, a := range []*artifact.Artifact{res.Processed, res.Thumbnail} {
			if a == nil {
				continue
			}
			if id, ok := artifact.MemoryID(a.ReferenceURL); ok {
				a.ReferenceURL = refsPath + id
			}
		}
	}
}

func (h *HTTPHandler) handleReference(w http.ResponseWriter, r *http.Request) {
	name, mimeType, data, ok := h.refs.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "reference not found")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", `inline; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *HTTPHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	err := h.refs.Revoke(r.Context(), artifact.MemoryURLPrefix+chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, artifact.ErrUnknownReference):
		writeError(w, http.StatusNotFound, "reference not found")
	case err != nil:
		h.logger.Error("revoke reference failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "revoke failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
