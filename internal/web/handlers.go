package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"shiftcal/internal/convert"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/workspace"
)

// Multipart form fields of the upload.
const (
	formFile    = "file"
	formSurname = "surname"
)

// multipartOverhead is allowed on top of the file limit for the other form
// fields and part headers.
const multipartOverhead = 1 << 20

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ConvertResponse is the JSON body of POST /api/convert.
type ConvertResponse struct {
	CSVName    string              `json:"csv_name"`
	ICSName    string              `json:"ics_name"`
	EventCount int                 `json:"event_count"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
	CSV        string              `json:"csv"`
	ICS        string              `json:"ics"`
	Warnings   []string            `json:"warnings"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	res, ok := s.convert(w, r)
	if !ok {
		return
	}
	resp := ConvertResponse{
		CSVName:    res.CSVName,
		ICSName:    res.ICSName,
		EventCount: res.EventCount,
		CSV:        res.CSV,
		ICS:        res.ICS,
		Warnings:   res.Warnings,
		Columns:    []string{},
		Rows:       []map[string]string{},
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if res.Table != nil {
		resp.Columns = res.Table.Columns
		for _, row := range res.Table.Rows {
			resp.Rows = append(resp.Rows, row)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConvertCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.convert(w, r)
	if !ok {
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", res.CSVName, res.CSV)
}

func (s *Server) handleConvertICS(w http.ResponseWriter, r *http.Request) {
	res, ok := s.convert(w, r)
	if !ok {
		return
	}
	if res.ICS == "" {
		respondError(w, r, http.StatusUnprocessableEntity,
			fmt.Errorf("no calendar produced: %s", strings.Join(res.Warnings, "; ")))
		return
	}
	writeAttachment(w, "text/calendar; charset=utf-8", res.ICSName, res.ICS)
}

// convert reads the upload and runs one conversion in its own workspace.
// On failure the error response has been written and ok is false.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) (res convert.Result, ok bool) {
	ctx := r.Context()
	logger := appLog.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile(formFile)
	if err != nil {
		respondError(w, r, statusFor(uploadError(err)), uploadError(err))
		return res, false
	}
	defer file.Close()

	if err := s.limiter.Acquire(ctx); err != nil {
		respondError(w, r, statusFor(err), err)
		return res, false
	}
	defer s.limiter.Release()

	ws, err := workspace.New(s.cfg.WorkDir)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err)
		return res, false
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("workspace cleanup failed", "workspace", ws.ID, "error", err.Error())
		}
	}()

	res, err = s.converter.Run(ctx, ws, convert.Request{
		Filename: header.Filename,
		Input:    file,
		Surname:  r.FormValue(formSurname),
	})
	if err != nil {
		respondError(w, r, statusFor(err), err)
		return res, false
	}
	for _, warn := range res.Warnings {
		logger.Warn("conversion warning", "workspace", ws.ID, "warning", warn)
	}
	return res, true
}

// uploadError translates multipart read failures into conversion errors.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return convert.ErrNoFile
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		return fmt.Errorf("read upload: %w", workspace.ErrTooLarge)
	case errors.Is(err, http.ErrNotMultipart):
		return fmt.Errorf("%w: %w", convert.ErrNoFile, err)
	default:
		return fmt.Errorf("read upload: %w", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, convert.ErrNoFile), errors.Is(err, convert.ErrSurnameRequired):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, convert.ErrPersonNotFound), errors.Is(err, convert.ErrUnreadableInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, convert.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes it as an ErrorResponse.
func respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := convert.MapError(err)
	reqID := middleware.GetReqID(r.Context())

	logger := appLog.FromContext(r.Context())
	if status >= http.StatusInternalServerError && !errors.Is(err, convert.ErrBusy) {
		logger.Error("request failed", "status", status, "error", err.Error(), "code", msg.Code)
	} else {
		logger.Info("request rejected", "status", status, "error", err.Error(), "code", msg.Code)
	}

	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: reqID,
	})
}

func writeAttachment(w http.ResponseWriter, contentType, name, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
