package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondaryLanguageDetection(t *testing.T) {
	english := apiEvent(1, "Board of Directors - Regular Board Meeting", "2024-01-10T00:00:00", "9:00 AM")
	spanish := apiEvent(2, "Board of Directors - Regular Board Meeting (SAP)", "2024-01-10T00:00:00", "12:00 AM")

	assert.False(t, english.IsSecondaryLanguage())
	assert.True(t, spanish.IsSecondaryLanguage())
}

func TestOwnKeyKeepsSuffix(t *testing.T) {
	english := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")
	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-10T00:00:00", "12:00 AM")

	assert.NotEqual(t, english.OwnKey(), spanish.OwnKey())
	assert.Equal(t, english.PartnerKey(), spanish.OwnKey())
	assert.Equal(t, spanish.PartnerKey(), english.OwnKey())
}

func TestIsPartnerIgnoresTimeOfDay(t *testing.T) {
	english := apiEvent(1, "Board of Directors - Regular Board Meeting", "2024-01-10T00:00:00", "9:00 AM")
	spanish := apiEvent(2, "Board of Directors - Regular Board Meeting (SAP)", "2024-01-10T00:00:00", "12:00 AM")

	assert.True(t, english.IsPartner(spanish))
	assert.True(t, spanish.IsPartner(english))
}

func TestIsPartnerRejectsDifferentDate(t *testing.T) {
	english := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")
	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-11T00:00:00", "9:00 AM")

	assert.False(t, english.IsPartner(spanish))
}

func TestPartnerFilter(t *testing.T) {
	english := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "9:00 AM")

	assert.Equal(t,
		"EventBodyName eq 'Planning Committee (SAP)' and EventDate eq datetime'2024-01-10T00:00:00'",
		english.PartnerFilter(),
	)

	spanish := apiEvent(2, "Planning Committee (SAP)", "2024-01-10T00:00:00", "12:00 AM")
	assert.Equal(t,
		"EventBodyName eq 'Planning Committee' and EventDate eq datetime'2024-01-10T00:00:00'",
		spanish.PartnerFilter(),
	)
}

func TestStartCombinesDateAndTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	ev := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "1:30 PM")
	start, err := ev.Start(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 10, 13, 30, 0, 0, loc), start)
}

func TestStartWithBlankTimeIsMidnight(t *testing.T) {
	ev := apiEvent(1, "Planning Committee", "2024-01-10T00:00:00", "")
	start, err := ev.Start(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), start)
}

func TestWebRecordAvailability(t *testing.T) {
	var w WebRecord
	assert.False(t, w.HasAudio())
	assert.False(t, w.HasEcomment())
	assert.False(t, w.HasPublishedMinutes())

	w = WebRecord{
		Audio:            &WebLink{Label: "Meeting video", URL: "https://example.com/audio"},
		EComment:         "https://example.com/ecomment",
		PublishedMinutes: &WebLink{Label: "Minutes", URL: "https://example.com/minutes.pdf"},
	}
	assert.True(t, w.HasAudio())
	assert.True(t, w.HasEcomment())
	assert.True(t, w.HasPublishedMinutes())
}
