// Package convert runs a schedule upload through the whole pipeline:
// store the upload, normalize it, write the CSV, and build the iCalendar
// document from that CSV.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/mapper"
	"shiftcal/internal/schedule"
	"shiftcal/internal/workspace"
)

const (
	WarnNoTransformer = "no transformation for this file: the uploaded table is used as-is"
	WarnNoEvents      = "no events detected for the ICS; check that the CSV headers follow the schema (Subject, Start Date/Time, End Date/Time, ...)"
)

// Request is one conversion's input.
type Request struct {
	Filename string
	Input    io.Reader
	Surname  string
}

// Result holds both documents and what the caller needs to present them.
type Result struct {
	Table      *schedule.Table
	CSV        string
	ICS        string
	EventCount int
	CSVName    string
	ICSName    string
	Warnings   []string
}

// Converter holds the pipeline settings shared by all requests. It keeps no
// per-request state; everything transient lives in the Workspace.
type Converter struct {
	transformer Transformer
	aliases     schedule.AliasTable
	mapperOpts  []mapper.Option
	icsOpts     []ics.Option
	maxUpload   int64
}

// Option configures a Converter.
type Option func(*Converter)

// WithTransformer sets the normalization step. With a nil transformer or
// Passthrough, Run uses the raw table and adds WarnNoTransformer.
func WithTransformer(t Transformer) Option {
	return func(c *Converter) { c.transformer = t }
}

// WithAliases sets the header alias table used to resolve columns.
func WithAliases(a schedule.AliasTable) Option {
	return func(c *Converter) {
		if len(a) > 0 {
			c.aliases = a
		}
	}
}

// WithMapperOptions passes options to the event mapper.
func WithMapperOptions(opts ...mapper.Option) Option {
	return func(c *Converter) { c.mapperOpts = append(c.mapperOpts, opts...) }
}

// WithICSOptions passes options to the iCalendar serializer.
func WithICSOptions(opts ...ics.Option) Option {
	return func(c *Converter) { c.icsOpts = append(c.icsOpts, opts...) }
}

// WithMaxUpload limits the stored upload size; 0 means unlimited.
func WithMaxUpload(n int64) Option {
	return func(c *Converter) { c.maxUpload = n }
}

// New returns a Converter using Passthrough and the default aliases.
func New(opts ...Option) *Converter {
	c := &Converter{
		transformer: Passthrough{},
		aliases:     schedule.DefaultAliases(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is shorthand for New(opts...).Run(ctx, ws, req).
func Run(ctx context.Context, ws *workspace.Workspace, req Request, opts ...Option) (Result, error) {
	return New(opts...).Run(ctx, ws, req)
}

// Run converts one upload. Files are written to ws, which the caller owns
// and closes. A result with zero events is not an error.
func (c *Converter) Run(ctx context.Context, ws *workspace.Workspace, req Request) (Result, error) {
	var res Result
	start := time.Now()

	if req.Input == nil {
		return res, ErrNoFile
	}
	surname := strings.ToLower(strings.TrimSpace(req.Surname))
	if surname == "" {
		return res, ErrSurnameRequired
	}
	if ws == nil {
		return res, errors.New("convert: nil workspace")
	}

	res.CSVName, res.ICSName = OutputNames(req.Filename, surname)

	format := schedule.FormatOf(req.Filename)
	stored := uploadName(req.Filename, format)
	if _, err := ws.Save(stored, req.Input, c.maxUpload); err != nil {
		return res, fmt.Errorf("store upload: %w", err)
	}
	f, err := ws.Open(stored)
	if err != nil {
		return res, fmt.Errorf("open upload: %w", err)
	}
	raw, err := schedule.ReadTable(f, format)
	f.Close()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}

	table := raw
	if _, asIs := c.transformer.(Passthrough); asIs || c.transformer == nil {
		res.Warnings = append(res.Warnings, WarnNoTransformer)
	}
	if c.transformer != nil {
		table, err = c.transformer.Transform(ctx, raw, surname)
		if err != nil {
			return res, err
		}
		if table == nil {
			return res, errors.New("transformer returned no table")
		}
	}
	res.Table = table

	res.CSV, err = schedule.CSVString(table)
	if err != nil {
		return res, fmt.Errorf("write csv: %w", err)
	}
	if _, err := ws.WriteFile(res.CSVName, []byte(res.CSV)); err != nil {
		return res, fmt.Errorf("store csv: %w", err)
	}

	doc, count, err := c.calendarFromCSV(res.CSV, strings.TrimSuffix(res.ICSName, ".ics"))
	if err != nil {
		appLog.Warn("ics generation failed", "error", err.Error(), "workspace", ws.ID)
		res.Warnings = append(res.Warnings, "could not build the ICS from the CSV: "+err.Error())
		return res, nil
	}
	res.ICS, res.EventCount = doc, count
	if count == 0 {
		res.Warnings = append(res.Warnings, WarnNoEvents)
	}
	if _, err := ws.WriteFile(res.ICSName, []byte(doc)); err != nil {
		return res, fmt.Errorf("store ics: %w", err)
	}

	appLog.Info("conversion completed",
		"workspace", ws.ID,
		"rows", table.Len(),
		"events", count,
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// calendarFromCSV re-reads the exported CSV and builds the iCalendar
// document named name from it, so the ICS always matches what the user
// downloads.
func (c *Converter) calendarFromCSV(csvText, name string) (string, int, error) {
	table, err := schedule.ReadCSV(strings.NewReader(csvText))
	if err != nil {
		return "", 0, err
	}
	fm := schedule.Resolve(table.Columns, c.aliases)
	events := mapper.Map(table.Rows, fm, c.mapperOpts...)
	opts := append([]ics.Option{ics.WithCalendarName(name)}, c.icsOpts...)
	return ics.Serialize(events, opts...)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	return unsafeName.ReplaceAllString(s, "")
}

// OutputNames returns the CSV and ICS file names for an upload:
// "<stem>_<surname>.csv" and ".ics", restricted to [A-Za-z0-9_-].
func OutputNames(upload, surname string) (csvName, icsName string) {
	stem := sanitize(fileStem(upload))
	if stem == "" {
		stem = "schedule"
	}
	base := stem
	if s := sanitize(strings.ToLower(strings.TrimSpace(surname))); s != "" {
		base += "_" + s
	}
	return base + ".csv", base + ".ics"
}

func fileStem(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// uploadName is the stored name of the original upload. The "upload_"
// prefix keeps it apart from the generated CSV.
func uploadName(name string, format schedule.Format) string {
	stem := sanitize(fileStem(name))
	if stem == "" {
		stem = "schedule"
	}
	return "upload_" + stem + format.Extension()
}
