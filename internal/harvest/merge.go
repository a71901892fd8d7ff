package harvest

import (
	"context"
	"log/slog"
)

// DetailFetcher retrieves the full record for an event from both the API
// and the rendered web page. A failure means detail is unavailable for that
// record; it never aborts the stream of remaining events.
type DetailFetcher interface {
	EventDetail(ctx context.Context, ev EventRecord) (EventRecord, WebRecord, error)
}

// SourceLink is a labeled detail-page source attached to a merged event.
type SourceLink struct {
	URL  string
	Note string
}

// AudioLink is a labeled broadcast link attached to a merged event.
type AudioLink struct {
	Label string
	URL   string
}

// MergedEvent is a primary record enriched with its web detail and, when a
// partner exists, the secondary record's identifiers, detail link, and
// audio. It is built once per pair and not mutated afterward.
type MergedEvent struct {
	EventRecord

	Web          WebRecord
	SAPEventID   int
	SAPEventGuid string
	Details      []SourceLink
	Audio        []AudioLink
}

// MergeStream consumes EventPairs and yields one MergedEvent per pair whose
// primary detail could be fetched.
type MergeStream struct {
	ctx     context.Context
	pairs   *PairStream
	fetcher DetailFetcher
	log     *slog.Logger

	cur MergedEvent
	err error
}

// Merge wraps a pair stream with detail fetching.
func Merge(ctx context.Context, pairs *PairStream, fetcher DetailFetcher, log *slog.Logger) *MergeStream {
	if log == nil {
		log = slog.Default()
	}
	return &MergeStream{ctx: ctx, pairs: pairs, fetcher: fetcher, log: log}
}

// Scan advances to the next merged event, skipping pairs whose primary
// detail fetch failed.
func (s *MergeStream) Scan() bool {
	for s.pairs.Scan() {
		merged, ok := s.merge(s.pairs.Pair())
		if !ok {
			continue
		}
		s.cur = merged
		return true
	}
	s.err = s.pairs.Err()
	return false
}

// Event returns the merged event produced by the last successful Scan.
func (s *MergeStream) Event() MergedEvent { return s.cur }

// Err returns the first error encountered, if any.
func (s *MergeStream) Err() error { return s.err }

func (s *MergeStream) merge(pair EventPair) (MergedEvent, bool) {
	detail, web, err := s.fetcher.EventDetail(s.ctx, pair.Primary)
	if err != nil {
		s.log.Warn("event detail unavailable, dropping pair",
			"event_id", pair.Primary.ID, "body", pair.Primary.BodyName, "error", err)
		return MergedEvent{}, false
	}

	merged := MergedEvent{EventRecord: detail, Web: web}

	// An event with no detail page is a valid discovered state; only record
	// a web source when the site actually links one.
	if web.DetailURL != "" {
		merged.Details = append(merged.Details, SourceLink{URL: web.DetailURL, Note: "web"})
	}
	if web.HasAudio() {
		merged.Audio = append(merged.Audio, AudioLink{Label: web.Audio.Label, URL: web.Audio.URL})
	}

	if pair.Secondary != nil {
		s.mergeSecondary(&merged, *pair.Secondary)
	}

	return merged, true
}

// mergeSecondary enriches the merged event from its SAP partner. Secondary
// detail is strictly best effort: on failure the pair degrades to a
// primary-only merge.
func (s *MergeStream) mergeSecondary(merged *MergedEvent, secondary EventRecord) {
	detail, web, err := s.fetcher.EventDetail(s.ctx, secondary)
	if err != nil {
		s.log.Warn("secondary event detail unavailable, continuing with primary only",
			"event_id", secondary.ID, "body", secondary.BodyName, "error", err)
		return
	}

	merged.SAPEventID = detail.ID
	merged.SAPEventGuid = detail.Guid

	if web.DetailURL != "" {
		merged.Details = append(merged.Details, SourceLink{URL: web.DetailURL, Note: "web (sap)"})
	}
	if web.HasAudio() {
		merged.Audio = append(merged.Audio, AudioLink{Label: "Audio (SAP)", URL: web.Audio.URL})
	}
}
