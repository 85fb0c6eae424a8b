package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
)

var ErrEmptyDocument = errors.New("empty ICS document")

// Parse reads an iCalendar document back into events.
//
//   - All-day events (VALUE=DATE or a value without 'T') get an inclusive End,
//     undoing the exclusive DTEND written by Serialize.
//   - Floating date-times are read as wall-clock values in UTC. UTC values keep
//     their instant; TZID values are read in that zone when it is known.
//   - A VEVENT that cannot be read is logged and skipped.
func Parse(doc string) (model.Collection, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ErrEmptyDocument
	}

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	vevents := cal.Events()
	events := make(model.Collection, 0, len(vevents))
	for i, ve := range vevents {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "index", i, "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

// CountEvents returns the number of VEVENT blocks in doc.
func CountEvents(doc string) (int, error) {
	if strings.TrimSpace(doc) == "" {
		return 0, ErrEmptyDocument
	}
	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return 0, err
	}
	return len(cal.Events()), nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, allDay, err := parseTimeProp(startProp)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start
	out.AllDay = allDay

	// A missing DTEND means a one-day event for dates and a zero-length
	// event for date-times (RFC 5545 3.6.1).
	out.End = start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, _, err := parseTimeProp(endProp)
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
		if allDay {
			end = end.AddDate(0, 0, -1)
		}
		out.End = end
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtstamp); p != nil {
		if t, err := parseICSTime(p.Value, nil); err == nil {
			out.Stamp = t
		}
	}

	return out, nil
}

// parseTimeProp parses a DTSTART/DTEND property and reports whether it is a
// date-only value.
func parseTimeProp(p *ical.IANAProperty) (time.Time, bool, error) {
	val := strings.TrimSpace(p.Value)
	allDay := !strings.Contains(val, "T")

	var loc *time.Location
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			if l, err := time.LoadLocation(tzs[0]); err == nil {
				loc = l
			}
		}
	}

	if allDay {
		if len(val) > len(layoutDate) {
			val = val[:len(layoutDate)]
		}
		t, err := time.Parse(layoutDate, val)
		return t, true, err
	}
	t, err := parseICSTime(val, loc)
	return t, false, err
}

// parseICSTime parses a DATE-TIME value. UTC values end in 'Z'; floating
// values are read in loc, or UTC when loc is nil.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse(layoutUTC, v)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(layoutFloating, v, loc)
}
