// Package ics converts between calendar events and iCalendar payloads, for
// importing external calendars into the local store and exporting it back
// out.
package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/jshargo/google-calendar-agent/server/service/calendar"
)

const prodID = "-//google-calendar-agent//calendar agent//EN"

// Import parses an ICS payload into event drafts. Events without a usable
// start/end pair are skipped, not fatal; the caller decides what to insert.
func Import(body []byte, loc *time.Location) ([]*calendar.EventDraft, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ICS payload")
	}

	drafts := make([]*calendar.EventDraft, 0)
	for _, ve := range cal.Events() {
		draft, ok := parseVEvent(ve, loc)
		if !ok {
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (*calendar.EventDraft, bool) {
	summary := propertyValue(ve, ical.ComponentPropertySummary)
	if summary == "" {
		return nil, false
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, false
	}
	start = start.In(loc)

	allDay := isAllDay(ve)

	end, err := ve.GetEndAt()
	if err != nil {
		// DTEND is optional; default all-day events to one day, timed
		// events to one hour.
		if allDay {
			end = start.Add(24 * time.Hour)
		} else {
			end = start.Add(time.Hour)
		}
	} else {
		end = end.In(loc)
	}
	if !end.After(start) {
		return nil, false
	}

	draft := &calendar.EventDraft{
		Summary:     summary,
		Description: propertyValue(ve, ical.ComponentPropertyDescription),
		Location:    propertyValue(ve, ical.ComponentPropertyLocation),
		Range:       calendar.TimeRange{Start: start, End: end},
		AllDay:      allDay,
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		rule := p.Value
		draft.RecurrenceRule = &rule
	}
	return draft, true
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// isAllDay detects VALUE=DATE or date-only DTSTART forms.
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// Export renders event snapshots as an ICS payload.
func Export(events []*calendar.EventSnapshot) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for i, ev := range events {
		uid := ev.ID
		if uid == "" {
			uid = fmt.Sprintf("event-%d", i+1)
		}
		ve := cal.AddEvent(uid)
		ve.SetSummary(ev.Summary)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Range.Start)
			ve.SetAllDayEndAt(ev.Range.End)
		} else {
			ve.SetStartAt(ev.Range.Start)
			ve.SetEndAt(ev.Range.End)
		}
		ve.SetDtStampTime(time.Now())
	}

	return []byte(cal.Serialize()), nil
}
