package results

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"price-monitor/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, 1, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return h, st
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/results/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const importCSV = "nombre,precio,proveedor,fecha_scraping,categoria\n" +
	"Coca Cola 1.5L,\"$ 1.234,50\",Jumbo,2025-05-01T10:00:00Z,Bebidas\n" +
	"Sin proveedor,100,,2025-05-01,\n" +
	"Yerba Playadito,4000,Coto,,Almacén\n"

func importFixture(t *testing.T, h *Handler) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Import(rec, uploadRequest(t, "precios.csv", importCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{"inserted": 2, "skipped": 1}, body)
}

func TestImportAndList(t *testing.T) {
	h, _ := newTestHandler(t)
	importFixture(t, h)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []store.Result `json:"results"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Results, 2)
	// the undated row was stamped with the import time, so it is newest
	assert.Equal(t, "Yerba Playadito", body.Results[0].Name)
	assert.Equal(t, 1234.5, body.Results[1].Price)
	assert.Equal(t, store.StatusSuccess, body.Results[1].Status)
}

func TestListFiltersAndPaging(t *testing.T) {
	h, _ := newTestHandler(t)
	importFixture(t, h)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results?proveedor=Jumbo", nil))
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results?limit=1&offset=1", nil))
	var body struct {
		Results []store.Result `json:"results"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Coca Cola 1.5L", body.Results[0].Name)
}

func TestListBadFormat(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCSV(t *testing.T) {
	h, _ := newTestHandler(t)
	importFixture(t, h)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results?format=csv&proveedor=Jumbo", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "resultados.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "url,nombre,precio,descuento,categoria,proveedor,status,fechaScraping,error", lines[0])
	assert.Equal(t, ",Coca Cola 1.5L,1234.5,,Bebidas,Jumbo,success,2025-05-01T10:00:00Z,", lines[1])
}

func TestExportXLSX(t *testing.T) {
	h, _ := newTestHandler(t)
	importFixture(t, h)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/results?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Resultados")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "Yerba Playadito", rows[1][1])
}

func TestProvidersAndCategories(t *testing.T) {
	h, _ := newTestHandler(t)
	importFixture(t, h)

	rec := httptest.NewRecorder()
	h.Providers(rec, httptest.NewRequest(http.MethodGet, "/api/results/providers", nil))
	assert.JSONEq(t, `{"providers":["Coto","Jumbo"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/results/categories", nil))
	assert.JSONEq(t, `{"categories":["Almacén","Bebidas"]}`, rec.Body.String())
}

func TestImportRejectsBadUploads(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Import(rec, uploadRequest(t, "precios.pdf", "whatever"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/results/import", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	h.Import(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
