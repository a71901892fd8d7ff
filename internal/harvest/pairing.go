package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"metroharvest/internal/report"
)

// secondaryBroadcastStart is the date Spanish-language broadcasting began.
// A SAP record dated after this point must have an English partner; before
// it, unmatched SAP records are expected.
var secondaryBroadcastStart = time.Date(2018, time.May, 15, 0, 0, 0, 0, time.UTC)

// EventPair groups a primary-language record with its optional
// secondary-language counterpart.
type EventPair struct {
	Primary   EventRecord
	Secondary *EventRecord
}

// PartnerFinder looks up candidate partner records in the events index.
type PartnerFinder interface {
	FindPartner(ctx context.Context, filter string) ([]EventRecord, error)
}

// PairStream lazily yields EventPairs from an unordered set of records.
// Use it like a bufio.Scanner: Scan, then Pair, then Err once Scan returns
// false.
type PairStream struct {
	ctx      context.Context
	finder   PartnerFinder
	reporter report.Reporter
	log      *slog.Logger

	records  []EventRecord
	idx      int
	held     map[PairKey]EventRecord
	order    []PairKey
	orderIdx int

	cur EventPair
	err error
}

// PairEvents deduplicates records and returns a stream of pairs. Pairing
// state is scoped entirely to the returned stream. A nil finder disables
// the secondary partner lookup for residual records.
func PairEvents(ctx context.Context, records []EventRecord, finder PartnerFinder, reporter report.Reporter, log *slog.Logger) *PairStream {
	if log == nil {
		log = slog.Default()
	}
	if reporter == nil {
		reporter = report.NewLogReporter(log)
	}
	return &PairStream{
		ctx:      ctx,
		finder:   finder,
		reporter: reporter,
		log:      log,
		records:  dedupe(ctx, records, reporter),
		held:     make(map[PairKey]EventRecord),
	}
}

// dedupe sorts records by own key and drops repeats. A repeated key is an
// upstream data defect, not a pairing decision this stage can make.
func dedupe(ctx context.Context, records []EventRecord, reporter report.Reporter) []EventRecord {
	sorted := make([]EventRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OwnKey().Less(sorted[j].OwnKey())
	})

	unique := sorted[:0]
	var last PairKey
	for i, ev := range sorted {
		if i > 0 && ev.OwnKey() == last {
			reporter.Report(ctx, report.New(
				report.SeverityError,
				fmt.Sprintf("duplicate event key for %s on %s; consider incorporating time into event pairing", ev.BodyName, ev.Date),
				map[string]string{"body": ev.BodyName, "date": ev.Date},
			))
			continue
		}
		unique = append(unique, ev)
		last = ev.OwnKey()
	}
	return unique
}

// Scan advances to the next pair. It returns false when the stream is
// exhausted or the context is cancelled.
func (s *PairStream) Scan() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	// In-stream pairing: hold each record until its partner turns up.
	for s.idx < len(s.records) {
		ev := s.records[s.idx]
		s.idx++

		if partner, ok := s.held[ev.PartnerKey()]; ok {
			delete(s.held, ev.PartnerKey())
			s.cur = orderPair(ev, partner)
			return true
		}
		s.held[ev.OwnKey()] = ev
		s.order = append(s.order, ev.OwnKey())
	}

	// Residual resolution, one held record per Scan so a consumer that
	// stops early never pays for the remaining partner lookups.
	for s.orderIdx < len(s.order) {
		key := s.order[s.orderIdx]
		s.orderIdx++

		ev, ok := s.held[key]
		if !ok {
			continue
		}
		delete(s.held, key)

		if partner := s.findPartner(ev); partner != nil {
			s.cur = orderPair(ev, *partner)
			return true
		}

		if ev.IsSecondaryLanguage() {
			if date, err := ev.DateTime(); err == nil && date.After(secondaryBroadcastStart) {
				s.reporter.Report(s.ctx, report.New(
					report.SeverityCritical,
					fmt.Sprintf("could not find English partner for Spanish event %s on %s", ev.BodyName, ev.Date),
					map[string]string{"body": ev.BodyName, "date": ev.Date},
				))
			}
		}

		s.cur = EventPair{Primary: ev}
		return true
	}

	return false
}

// Pair returns the pair produced by the last successful Scan.
func (s *PairStream) Pair() EventPair { return s.cur }

// Err returns the first error encountered, if any.
func (s *PairStream) Err() error { return s.err }

func (s *PairStream) findPartner(ev EventRecord) *EventRecord {
	if s.finder == nil {
		return nil
	}
	results, err := s.finder.FindPartner(s.ctx, ev.PartnerFilter())
	if err != nil {
		s.log.Warn("partner lookup failed", "body", ev.BodyName, "date", ev.Date, "error", err)
		return nil
	}
	for _, candidate := range results {
		if ev.IsPartner(candidate) {
			return &candidate
		}
		s.log.Warn("partner lookup returned a non-matching record",
			"body", ev.BodyName, "date", ev.Date, "candidate_body", candidate.BodyName)
	}
	return nil
}

// orderPair puts the primary-language record first regardless of which
// member was discovered first.
func orderPair(a, b EventRecord) EventPair {
	if a.IsSecondaryLanguage() {
		a, b = b, a
	}
	return EventPair{Primary: a, Secondary: &b}
}
