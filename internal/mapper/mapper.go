// Package mapper turns normalized schedule rows into calendar events.
//
// Rows are classified as all-day or timed, missing end values are filled in
// from the start, and any row that cannot produce a valid start is skipped
// without failing the batch.
package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/schedule"
)

const (
	DefaultPlaceholder = "Event"
	DefaultDuration    = 60 * time.Minute
)

// DefaultTruthy lists the all-day flag values that mark a row as all-day.
var DefaultTruthy = []string{"true", "1", "yes", "y", "si", "sì", "x"}

var errNoStart = errors.New("no valid start")

// Mapper converts rows to events. The zero value is not usable; use New.
type Mapper struct {
	placeholder string
	duration    time.Duration
	truthy      map[string]struct{}
	now         func() time.Time
	newUID      func() string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithPlaceholder sets the name used when a row has no subject.
func WithPlaceholder(name string) Option {
	return func(m *Mapper) {
		if strings.TrimSpace(name) != "" {
			m.placeholder = name
		}
	}
}

// WithDefaultDuration sets the length given to timed events without a
// usable end.
func WithDefaultDuration(d time.Duration) Option {
	return func(m *Mapper) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithTruthy replaces the set of all-day flag values.
func WithTruthy(tokens []string) Option {
	return func(m *Mapper) {
		if len(tokens) > 0 {
			m.truthy = tokenSet(tokens)
		}
	}
}

// WithClock sets the function used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

// WithUIDFunc sets the event identifier generator.
func WithUIDFunc(f func() string) Option {
	return func(m *Mapper) {
		if f != nil {
			m.newUID = f
		}
	}
}

// New returns a Mapper with the default placeholder, duration and truthy
// tokens, modified by opts.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		placeholder: DefaultPlaceholder,
		duration:    DefaultDuration,
		truthy:      tokenSet(DefaultTruthy),
		now:         time.Now,
		newUID:      newUID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map is shorthand for New(opts...).Map(rows, fm).
func Map(rows []schedule.Row, fm schedule.FieldMap, opts ...Option) model.Collection {
	return New(opts...).Map(rows, fm)
}

// Map builds one event per valid row, in row order. Rows that fail are
// logged at debug level and skipped; an empty result is not an error.
func (m *Mapper) Map(rows []schedule.Row, fm schedule.FieldMap) model.Collection {
	events := make(model.Collection, 0, len(rows))
	for i, row := range rows {
		ev, err := m.mapRowSafe(row, fm)
		if err != nil {
			appLog.Debug("row skipped", "row", i+1, "reason", err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events
}

// mapRowSafe converts a panic inside mapRow into a row error.
func (m *Mapper) mapRowSafe(row schedule.Row, fm schedule.FieldMap) (ev model.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = model.Event{}, fmt.Errorf("panic: %v", r)
		}
	}()
	return m.mapRow(row, fm)
}

func (m *Mapper) mapRow(row schedule.Row, fm schedule.FieldMap) (model.Event, error) {
	ev := model.Event{Summary: m.placeholder}
	if name := row.Get(fm.Column(schedule.FieldSubject)); name != "" {
		ev.Summary = name
	}

	startDate, _, startDateOK := row.Lookup(fm.Column(schedule.FieldStartDate))
	endDate, endDatePresent, endDateOK := row.Lookup(fm.Column(schedule.FieldEndDate))
	if !endDatePresent {
		endDate, endDateOK = startDate, startDateOK
	}
	startTime, _, startTimeOK := row.Lookup(fm.Column(schedule.FieldStartTime))
	endTime, _, endTimeOK := row.Lookup(fm.Column(schedule.FieldEndTime))

	if m.isAllDay(row, fm) || (!startTimeOK && !endTimeOK) {
		if !startDateOK {
			return model.Event{}, errNoStart
		}
		begin, _, _, err := parseDate(startDate)
		if err != nil {
			return model.Event{}, err
		}
		end := begin
		if endDateOK {
			if d, _, _, err := parseDate(endDate); err == nil {
				end = d
			}
		}
		ev.AllDay = true
		ev.Start, ev.End = begin, end
	} else {
		var (
			begin, end     time.Time
			beginOK, endOK bool
		)
		if startDateOK {
			clock := ""
			if startTimeOK {
				clock = startTime
			}
			if t, err := combine(startDate, clock); err == nil {
				begin, beginOK = t, true
			}
		}
		if endDateOK {
			if endTimeOK {
				if t, err := combine(endDate, endTime); err == nil {
					end, endOK = t, true
				}
			} else if beginOK {
				end, endOK = begin.Add(m.duration), true
			}
		}
		if !beginOK {
			return model.Event{}, errNoStart
		}
		if !endOK {
			end = begin.Add(m.duration)
		}
		ev.Start, ev.End = begin, end
	}

	if col := fm.Column(schedule.FieldDescription); col != "" {
		ev.Description = row.Get(col)
	}
	if col := fm.Column(schedule.FieldLocation); col != "" {
		ev.Location = row.Get(col)
	}

	ev.Stamp = m.now().UTC()
	ev.UID = m.newUID()
	return ev, nil
}

// isAllDay reports whether the row's all-day flag holds a truthy token.
func (m *Mapper) isAllDay(row schedule.Row, fm schedule.FieldMap) bool {
	col := fm.Column(schedule.FieldAllDay)
	if col == "" {
		return false
	}
	v, _, ok := row.Lookup(col)
	if !ok {
		return false
	}
	_, truthy := m.truthy[normalizeToken(v)]
	return truthy
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[normalizeToken(t)] = struct{}{}
	}
	return set
}

// normalizeToken folds case and composes accents, so "Sì" typed with a
// combining grave accent still matches "sì".
func normalizeToken(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

func newUID() string {
	return uuid.NewString() + "@shiftcal"
}
