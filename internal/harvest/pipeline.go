package harvest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"metroharvest/internal/civic"
	"metroharvest/internal/report"
)

// RecordSource produces raw event records from the API, either within a
// modification window or for an explicit identifier list.
type RecordSource interface {
	Events(ctx context.Context, since *time.Time) ([]EventRecord, error)
	EventsByID(ctx context.Context, ids []int) ([]EventRecord, error)
}

// BodyDirectory resolves the body identifiers of service councils, whose
// events the harvester does not publish.
type BodyDirectory interface {
	ServiceCouncilBodyIDs(ctx context.Context) (map[int]struct{}, error)
}

// PageChecker verifies that a web detail page actually resolves.
type PageChecker interface {
	PageAvailable(ctx context.Context, url string) bool
}

// Pipeline orchestrates the full harvest: fetch, pair, merge, normalize.
type Pipeline struct {
	Source     RecordSource
	Bodies     BodyDirectory
	Fetcher    DetailFetcher
	Finder     PartnerFinder
	Pages      PageChecker
	Normalizer *Normalizer
	Reporter   report.Reporter
	Log        *slog.Logger

	// FindMissingPartner enables the secondary partner lookup for records
	// left unpaired by the stream.
	FindMissingPartner bool
}

// ScrapeOptions select which events a run covers.
type ScrapeOptions struct {
	// Window limits the run to events modified within the duration. Zero
	// means no limit.
	Window time.Duration
	// EventIDs limits the run to an explicit set of events. Mutually
	// exclusive with Window.
	EventIDs []int
}

// NewPipeline validates the required collaborators.
func NewPipeline(p Pipeline) (*Pipeline, error) {
	if p.Source == nil {
		return nil, errors.New("harvest: pipeline requires a record source")
	}
	if p.Fetcher == nil {
		return nil, errors.New("harvest: pipeline requires a detail fetcher")
	}
	if p.Normalizer == nil {
		return nil, errors.New("harvest: pipeline requires a normalizer")
	}
	if p.Log == nil {
		p.Log = slog.Default()
	}
	if p.Reporter == nil {
		p.Reporter = report.NewLogReporter(p.Log)
	}
	return &p, nil
}

// Run fetches the raw records and returns a lazy stream of normalized
// events. Per-record failures are isolated; only fetching the index itself
// can fail the run.
func (p *Pipeline) Run(ctx context.Context, opts ScrapeOptions) (*EventStream, error) {
	if opts.Window != 0 && len(opts.EventIDs) > 0 {
		return nil, errors.New("harvest: cannot specify both a window and an event id list")
	}

	var (
		records []EventRecord
		err     error
	)
	if len(opts.EventIDs) > 0 {
		records, err = p.Source.EventsByID(ctx, opts.EventIDs)
	} else {
		var since *time.Time
		if opts.Window != 0 {
			cutoff := time.Now().UTC().Add(-opts.Window)
			since = &cutoff
		}
		records, err = p.Source.Events(ctx, since)
	}
	if err != nil {
		return nil, err
	}

	records = p.publicOnly(ctx, records)

	var councils map[int]struct{}
	if p.Bodies != nil {
		councils, err = p.Bodies.ServiceCouncilBodyIDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	finder := p.Finder
	if !p.FindMissingPartner {
		finder = nil
	}

	pairs := PairEvents(ctx, records, finder, p.Reporter, p.Log)
	merged := Merge(ctx, pairs, p.Fetcher, p.Log)

	return &EventStream{
		ctx:      ctx,
		merged:   merged,
		norm:     p.Normalizer,
		councils: councils,
		log:      p.Log,
	}, nil
}

// publicOnly drops records with no working web presence. A missing in-site
// URL or a dead detail page means the event was pulled from the calendar.
func (p *Pipeline) publicOnly(ctx context.Context, records []EventRecord) []EventRecord {
	out := records[:0]
	for _, ev := range records {
		if ev.InSiteURL == "" {
			continue
		}
		if p.Pages != nil && !p.Pages.PageAvailable(ctx, ev.InSiteURL) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventStream lazily yields normalized civic events.
type EventStream struct {
	ctx      context.Context
	merged   *MergeStream
	norm     *Normalizer
	councils map[int]struct{}
	log      *slog.Logger

	cur *civic.Event
	err error
}

// Scan advances to the next normalized event.
func (s *EventStream) Scan() bool {
	for s.merged.Scan() {
		m := s.merged.Event()

		// Service council and service council public hearing events are
		// tracked in Legistar but not published downstream.
		if _, ok := s.councils[m.BodyID]; ok && !strings.Contains(m.BodyName, boardPrefix) {
			s.log.Info("skipping service council event", "event_id", m.ID, "body", m.BodyName)
			continue
		}

		ev, err := s.norm.Normalize(s.ctx, m)
		if err != nil {
			s.log.Warn("could not normalize event", "event_id", m.ID, "error", err)
			continue
		}
		s.cur = ev
		return true
	}
	s.err = s.merged.Err()
	return false
}

// Event returns the event produced by the last successful Scan.
func (s *EventStream) Event() *civic.Event { return s.cur }

// Err returns the first error encountered, if any.
func (s *EventStream) Err() error { return s.err }
