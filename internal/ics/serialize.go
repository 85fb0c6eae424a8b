// Package ics writes event collections as iCalendar documents and reads
// them back.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"shiftcal/internal/model"
)

const (
	DefaultProductID = "-//shiftcal//Shift Converter//IT"
	DefaultTimezone  = "Europe/Rome"
)

const (
	layoutDate     = "20060102"
	layoutFloating = "20060102T150405"
	layoutUTC      = "20060102T150405Z"
)

type options struct {
	productID string
	timezone  string
	name      string
}

// Option configures Serialize.
type Option func(*options)

// WithProductID overrides the PRODID header.
func WithProductID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.productID = id
		}
	}
}

// WithTimezone sets the reference zone written as X-WR-TIMEZONE.
// Event times are not converted.
func WithTimezone(tz string) Option {
	return func(o *options) {
		if tz != "" {
			o.timezone = tz
		}
	}
}

// WithCalendarName sets X-WR-CALNAME.
func WithCalendarName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Serialize renders events as an iCalendar document with CRLF line endings.
// count is the number of VEVENT blocks written and always equals len(events).
//
// Timed events are written as floating local date-times, so the wall clock
// read from the schedule is what every calendar displays. All-day events
// use VALUE=DATE with an exclusive DTEND.
func Serialize(events model.Collection, opts ...Option) (string, int, error) {
	o := options{productID: DefaultProductID, timezone: DefaultTimezone}
	for _, opt := range opts {
		opt(&o)
	}

	cal := ical.NewCalendarFor("shiftcal")
	cal.SetProductId(o.productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRTimezone(o.timezone)
	if o.name != "" {
		cal.SetXWRCalName(o.name)
	}

	for _, ev := range events {
		addEvent(cal, ev)
	}

	var b strings.Builder
	if err := cal.SerializeTo(&b, ical.WithNewLineWindows); err != nil {
		return "", 0, err
	}
	return b.String(), len(events), nil
}

func addEvent(cal *ical.Calendar, ev model.Event) {
	ve := cal.AddEvent(ev.UID)

	stamp := ev.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	ve.SetDtStampTime(stamp)
	ve.SetCreatedTime(stamp)

	if ev.AllDay {
		ve.SetAllDayStartAt(ev.Start)
		ve.SetAllDayEndAt(ev.End.AddDate(0, 0, 1))
	} else {
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(layoutFloating))
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(layoutFloating))
	}

	ve.SetSummary(ev.Summary)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
}
