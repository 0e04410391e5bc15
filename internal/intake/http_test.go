package intake

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/mediaintake/internal/artifact"
)

type part struct {
	name, mimeType string
	data           []byte
}

func multipartBody(t *testing.T, fields map[string]string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.mimeType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newTestHandler(t *testing.T) (*HTTPHandler, *artifact.MemoryRegistry) {
	t.Helper()
	svc, refs := newTestService(t)
	return NewHTTPHandler(HandlerParams{
		Service:      svc,
		Refs:         refs,
		Logger:       zaptest.NewLogger(t),
		MaxSizeBytes: 1 << 20,
		FormMemBytes: 1 << 20,
	}), refs
}

type intakeResponse struct {
	Results []struct {
		Status    string `json:"status"`
		Kind      string `json:"kind"`
		Processed *struct {
			Name         string `json:"name"`
			ReferenceURL string `json:"reference_url"`
		} `json:"processed"`
		Failure *struct {
			Code string `json:"error_code"`
		} `json:"failure"`
	} `json:"results"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func post(t *testing.T, h *HTTPHandler, body io.Reader, contentType string) (*httptest.ResponseRecorder, intakeResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	var resp intakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestHTTP_Health(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHTTP_IntakeAndReference(t *testing.T) {
	h, _ := newTestHandler(t)
	body, ct := multipartBody(t, nil,
		part{name: "report.pdf", mimeType: "application/pdf", data: []byte("%PDF-1.4 fake")},
		part{name: "photo.png", mimeType: "image/png", data: pngBytes(t, 20, 10)},
	)

	rec, resp := post(t, h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "processed", resp.Results[0].Status)
	assert.Equal(t, "document", resp.Results[0].Kind)
	assert.Equal(t, "image", resp.Results[1].Kind)

	url := resp.Results[0].Processed.ReferenceURL
	require.True(t, strings.HasPrefix(url, "/refs/"), url)
	ref := httptest.NewRecorder()
	h.Router().ServeHTTP(ref, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, ref.Code)
	assert.Equal(t, "application/pdf", ref.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 fake", ref.Body.String())
}

func TestHTTP_RevokeReference(t *testing.T) {
	h, refs := newTestHandler(t)
	for i := 0; i < 3; i++ {
		body, ct := multipartBody(t, nil, part{name: "report.pdf", mimeType: "application/pdf", data: []byte("%PDF-1.4 fake")})
		rec, _ := post(t, h, body, ct)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	live := refs.Len()
	require.Positive(t, live)

	body, ct := multipartBody(t, nil, part{name: "report.pdf", mimeType: "application/pdf", data: []byte("%PDF-1.4 fake")})
	_, resp := post(t, h, body, ct)
	require.Len(t, resp.Results, 1)
	url := resp.Results[0].Processed.ReferenceURL
	require.Equal(t, live+2, refs.Len(), "processed artifact and thumbnail")

	del := httptest.NewRecorder()
	h.Router().ServeHTTP(del, httptest.NewRequest(http.MethodDelete, url, nil))
	assert.Equal(t, http.StatusNoContent, del.Code)
	assert.Equal(t, live+1, refs.Len())

	get := httptest.NewRecorder()
	h.Router().ServeHTTP(get, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusNotFound, get.Code)

	again := httptest.NewRecorder()
	h.Router().ServeHTTP(again, httptest.NewRequest(http.MethodDelete, url, nil))
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestHTTP_RulesField(t *testing.T) {
	h, _ := newTestHandler(t)
	body, ct := multipartBody(t, map[string]string{
		"rules": "rules:\n  - allowed_mime_types: [\"application/pdf\"]\n    max_file_size: 4\n",
	}, part{name: "report.pdf", mimeType: "application/pdf", data: []byte("%PDF-1.4 fake")})

	rec, resp := post(t, h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Failure)
	assert.Equal(t, "file-too-large", resp.Results[0].Failure.Code)
}

func TestHTTP_KindField(t *testing.T) {
	h, _ := newTestHandler(t)
	body, ct := multipartBody(t, map[string]string{"kind": "archive"},
		part{name: "data.bin", mimeType: "application/octet-stream", data: []byte{0x00, 0x9f, 0x13}})

	rec, resp := post(t, h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "archive", resp.Results[0].Kind)

	body, ct = multipartBody(t, map[string]string{"kind": "spreadsheet"},
		part{name: "data.bin", mimeType: "application/octet-stream", data: []byte{0x00}})
	rec, _ = post(t, h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Errors(t *testing.T) {
	h, _ := newTestHandler(t)

	body, ct := multipartBody(t, nil)
	rec, resp := post(t, h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, resp.Error)

	body, ct = multipartBody(t, map[string]string{"rules": "rules:\n  - max_selection_count: 1\n"},
		part{name: "a.pdf", mimeType: "application/pdf", data: []byte("a")},
		part{name: "b.pdf", mimeType: "application/pdf", data: []byte("b")},
	)
	rec, resp = post(t, h, body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "too-many-files", resp.Code)

	body, ct = multipartBody(t, map[string]string{"rules": "rules:\n  - bogus_field: 1\n"},
		part{name: "a.pdf", mimeType: "application/pdf", data: []byte("a")})
	rec, _ = post(t, h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = post(t, h, strings.NewReader("not multipart"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_PayloadTooLarge(t *testing.T) {
	h, _ := newTestHandler(t)
	body, ct := multipartBody(t, nil, part{name: "big.zip", mimeType: "application/zip", data: make([]byte, 2<<20)})

	rec, _ := post(t, h, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHTTP_UnknownReference(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/refs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
