package harvest

import (
	"context"
	"errors"
	"fmt"

	"metroharvest/internal/report"
)

// recordingReporter captures defects for assertions.
type recordingReporter struct {
	defects []report.Defect
}

func (r *recordingReporter) Report(_ context.Context, d report.Defect) {
	r.defects = append(r.defects, d)
}

func (r *recordingReporter) bySeverity(s report.Severity) []report.Defect {
	var out []report.Defect
	for _, d := range r.defects {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

func apiEvent(id int, body, date, clock string) EventRecord {
	return EventRecord{
		ID:       id,
		Guid:     fmt.Sprintf("guid-%d", id),
		BodyID:   100,
		BodyName: body,
		Date:     date,
		Time:     clock,
	}
}

// fakeFinder resolves partner lookups from a canned result set.
type fakeFinder struct {
	results map[string][]EventRecord
	err     error
	calls   []string
}

func (f *fakeFinder) FindPartner(_ context.Context, filter string) ([]EventRecord, error) {
	f.calls = append(f.calls, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[filter], nil
}

// fakeFetcher serves detail records by event id, with per-id failures.
type fakeFetcher struct {
	details map[int]EventRecord
	web     map[int]WebRecord
	fail    map[int]bool
}

func (f *fakeFetcher) EventDetail(_ context.Context, ev EventRecord) (EventRecord, WebRecord, error) {
	if f.fail[ev.ID] {
		return EventRecord{}, WebRecord{}, errors.New("detail unavailable")
	}
	detail, ok := f.details[ev.ID]
	if !ok {
		detail = ev
	}
	return detail, f.web[ev.ID], nil
}

func collectPairs(s *PairStream) []EventPair {
	var pairs []EventPair
	for s.Scan() {
		pairs = append(pairs, s.Pair())
	}
	return pairs
}

func collectMerged(s *MergeStream) []MergedEvent {
	var events []MergedEvent
	for s.Scan() {
		events = append(events, s.Event())
	}
	return events
}
