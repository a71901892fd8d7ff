package harvest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metroharvest/internal/report"
)

func TestPairsPrimaryWithSecondary(t *testing.T) {
	// The SAP record carries a placeholder time; time is not a match
	// criterion.
	english := apiEvent(1, "Board of Directors - Regular Board Meeting", "2024-01-10T00:00:00", "9:00 AM")
	spanish := apiEvent(2, "Board of Directors - Regular Board Meeting (SAP)", "2024-01-10T00:00:00", "12:00 AM")

	for _, records := range [][]EventRecord{
		{english, spanish},
		{spanish, english},
	} {
		reporter := &recordingReporter{}
		pairs := collectPairs(PairEvents(context.Background(), records, nil, reporter, nil))

		require.Len(t, pairs, 1)
		require.NotNil(t, pairs[0].Secondary)
		assert.Equal(t, english.ID, pairs[0].Primary.ID)
		assert.Equal(t, spanish.ID, pairs[0].Secondary.ID)
		assert.Empty(t, reporter.defects)
	}
}

func TestDuplicateOwnKeyReportedAndSkipped(t *testing.T) {
	first := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")
	duplicate := apiEvent(2, "Planning Committee", "2024-01-10T00:00:00", "10:00 AM")

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{first, duplicate}, nil, reporter, nil))

	require.Len(t, reporter.bySeverity(report.SeverityError), 1)

	// Dedup invariant: no two emitted pairs share a primary own-key.
	seen := map[PairKey]bool{}
	for _, pair := range pairs {
		key := pair.Primary.OwnKey()
		assert.False(t, seen[key])
		seen[key] = true
	}
	require.Len(t, pairs, 1)
}

func TestLonePrimaryEmittedAlone(t *testing.T) {
	english := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{english}, nil, reporter, nil))

	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Secondary)
	assert.Empty(t, reporter.defects)
}

func TestResidualPartnerLookup(t *testing.T) {
	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-10T00:00:00", "12:00 AM")
	english := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")

	finder := &fakeFinder{results: map[string][]EventRecord{
		spanish.PartnerFilter(): {english},
	}}

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{spanish}, finder, reporter, nil))

	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].Secondary)
	assert.Equal(t, english.ID, pairs[0].Primary.ID)
	assert.Equal(t, spanish.ID, pairs[0].Secondary.ID)
	assert.Empty(t, reporter.bySeverity(report.SeverityCritical))
}

func TestFinderResultsAreValidated(t *testing.T) {
	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-10T00:00:00", "12:00 AM")
	stranger := apiEvent(3, "Some Other Body", "2024-01-10T00:00:00", "9:00 AM")

	finder := &fakeFinder{results: map[string][]EventRecord{
		spanish.PartnerFilter(): {stranger},
	}}

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{spanish}, finder, reporter, nil))

	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Secondary)
}

func TestUnmatchedSecondaryBeforeBroadcastStartIsSilent(t *testing.T) {
	spanish := apiEvent(2, "Planning Committee (SAP)", "2018-05-01T00:00:00", "12:00 AM")

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{spanish}, &fakeFinder{}, reporter, nil))

	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Secondary)
	assert.Empty(t, reporter.bySeverity(report.SeverityCritical))
}

func TestUnmatchedSecondaryAfterBroadcastStartIsCritical(t *testing.T) {
	spanish := apiEvent(2, "Planning Committee (SAP)", "2018-06-01T00:00:00", "12:00 AM")

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{spanish}, &fakeFinder{}, reporter, nil))

	// The defect is critical but processing continues and the record is
	// still emitted alone.
	require.Len(t, reporter.bySeverity(report.SeverityCritical), 1)
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Secondary)
}

func TestPartnerLookupSkippedWithoutFinder(t *testing.T) {
	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-10T00:00:00", "12:00 AM")

	reporter := &recordingReporter{}
	pairs := collectPairs(PairEvents(context.Background(), []EventRecord{spanish}, nil, reporter, nil))

	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Secondary)
}

func TestResidualLookupsAreLazy(t *testing.T) {
	first := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")
	second := apiEvent(2, "Finance Committee", "2024-01-10T00:00:00", "10:00 AM")

	finder := &fakeFinder{}
	stream := PairEvents(context.Background(), []EventRecord{first, second}, finder, &recordingReporter{}, nil)

	require.True(t, stream.Scan())
	assert.Len(t, finder.calls, 1)
	// Stopping here must not trigger the other record's lookup. Records
	// are held in deduplicated key order, so the finance committee goes
	// first.
	assert.Equal(t, second.PartnerFilter(), finder.calls[0])
}

func TestScanStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := PairEvents(ctx, []EventRecord{apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "")}, nil, &recordingReporter{}, nil)

	assert.False(t, stream.Scan())
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}
