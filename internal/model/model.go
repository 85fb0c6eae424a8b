package model

import "time"

// Event is one calendar entry produced from a schedule row.
//
// Events are built once by the mapper and never mutated afterwards.
// End is not required to be after Start: schedules with overnight shifts
// written on a single date produce End < Start and are kept as-is.
type Event struct {
	UID string // iCalendar UID, freshly generated per conversion

	Summary     string
	Description string
	Location    string

	AllDay bool

	// For all-day events Start/End are midnight UTC of the first and last
	// day (End inclusive). For timed events they are wall-clock times
	// carried in UTC without any zone conversion.
	Start time.Time
	End   time.Time

	// Stamp is the creation instant, written as DTSTAMP/CREATED.
	Stamp time.Time
}

// Collection is the insertion-ordered set of events handed to the serializer.
type Collection []Event

// Count returns the number of events, which is the reported event count.
func (c Collection) Count() int {
	return len(c)
}

// AllDayCount returns how many events in the collection are all-day.
func (c Collection) AllDayCount() int {
	n := 0
	for _, ev := range c {
		if ev.AllDay {
			n++
		}
	}
	return n
}
