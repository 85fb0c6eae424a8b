package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftcal/internal/config"
	"shiftcal/internal/convert"
)

const rota = "Cognome,Subject,Start Date,Start Time,End Date,End Time,All Day Event\n" +
	"Rossi,Morning Shift,01/03/2024,08:00,01/03/2024,16:00,\n" +
	"Bianchi,Night Shift,01/03/2024,22:00,02/03/2024,06:00,\n" +
	"ROSSI,Day Off,02/03/2024,,,,x\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	cfg.RateLimit = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	conv := convert.New(convert.WithTransformer(convert.SurnameFilter{}))
	return NewServer(cfg, conv, convert.NewLimiter(1, time.Second))
}

// uploadRequest builds a multipart POST. An empty filename omits the file part.
func uploadRequest(t *testing.T, target, filename, content, surname string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile(formFile, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField(formSurname, surname))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/convert")
}

func TestConvert_JSON(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)
	rec := serve(s, uploadRequest(t, "/api/convert", "Turni Marzo.csv", rota, "rossi"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ConvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Turni_Marzo_rossi.csv", resp.CSVName)
	assert.Equal(t, "Turni_Marzo_rossi.ics", resp.ICSName)
	assert.Equal(t, 2, resp.EventCount)
	assert.Equal(t, []string{"Cognome", "Subject", "Start Date", "Start Time", "End Date", "End Time", "All Day Event"}, resp.Columns)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "Day Off", resp.Rows[1]["Subject"])
	assert.Contains(t, resp.ICS, "SUMMARY:Morning Shift")
	assert.NotContains(t, resp.CSV, "Bianchi")
	assert.Empty(t, resp.Warnings)

	// The per-request workspace is removed once the response is written.
	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvert_Attachments(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := serve(s, uploadRequest(t, "/api/convert/csv", "turni.csv", rota, "Rossi"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="turni_rossi.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Cognome,Subject"))

	rec = serve(s, uploadRequest(t, "/api/convert/ics", "turni.csv", rota, "Rossi"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="turni_rossi.ics"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR\r\n"))
}

func TestConvert_XLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Cognome", "Oggetto", "Data Inizio", "Ora Inizio", "Data Fine", "Ora Fine"},
		{"Rossi", "Mattina", "04/03/2024", "08:00", "04/03/2024", "16:00"},
		{"Bianchi", "Notte", "04/03/2024", "22:00", "05/03/2024", "06:00"},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s := newTestServer(t, testConfig(t))
	rec := serve(s, uploadRequest(t, "/api/convert", "turni.xlsx", buf.String(), "rossi"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ConvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "turni_rossi.csv", resp.CSVName)
	assert.Equal(t, 1, resp.EventCount)
	assert.Contains(t, resp.ICS, "SUMMARY:Mattina")
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    string
		surname    string
		wantStatus int
		wantCode   string
	}{
		{"missing file", "", "", "rossi", http.StatusBadRequest, "FILE004"},
		{"missing surname", "t.csv", rota, "  ", http.StatusBadRequest, "SCH002"},
		{"person not found", "t.csv", rota, "verdi", http.StatusUnprocessableEntity, "SCH001"},
		{"empty file", "t.csv", "", "rossi", http.StatusUnprocessableEntity, "FILE005"},
		{"invalid csv", "t.csv", "a,b\n\"x,1\n", "rossi", http.StatusUnprocessableEntity, "FILE002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(t))
			rec := serve(s, uploadRequest(t, "/api/convert", tt.filename, tt.content, tt.surname))
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestConvert_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxUploadBytes = 64
	s := NewServer(cfg, convert.New(convert.WithMaxUpload(cfg.MaxUploadBytes)), nil)

	rec := serve(s, uploadRequest(t, "/api/convert", "t.csv", rota, "rossi"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestConvert_Busy(t *testing.T) {
	limiter := convert.NewLimiter(1, 20*time.Millisecond)
	require.NoError(t, limiter.Acquire(t.Context()))
	defer limiter.Release()

	s := NewServer(testConfig(t), convert.New(), limiter)
	rec := serve(s, uploadRequest(t, "/api/convert", "t.csv", rota, "rossi"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL002", decodeError(t, rec).Code)
}

func TestConvert_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = 2
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(s, uploadRequest(t, "/api/convert", "t.csv", rota, "rossi"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(s, uploadRequest(t, "/api/convert", "t.csv", rota, "rossi"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Health is outside the limited routes.
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientLimiter_Refill(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cl := newClientLimiter(2, time.Minute)
	cl.now = func() time.Time { return now }

	assert.True(t, cl.allow("10.0.0.1"))
	assert.True(t, cl.allow("10.0.0.1"))
	assert.False(t, cl.allow("10.0.0.1"))
	assert.True(t, cl.allow("10.0.0.2"))

	now = now.Add(30 * time.Second)
	assert.True(t, cl.allow("10.0.0.1"))

	now = now.Add(5 * time.Minute)
	cl.allow("10.0.0.3")
	assert.Len(t, cl.clients, 1)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}
