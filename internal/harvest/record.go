// Package harvest pairs, merges, and normalizes legislative meeting records
// from the Legistar API and web calendar into the civic schema.
package harvest

import (
	"fmt"
	"strings"
	"time"
)

// sapSuffix marks the body name of a Spanish-language (SAP) broadcast record.
const sapSuffix = " (SAP)"

// eventDateLayout is the timestamp format the Legistar API uses for
// EventDate and the *LastPublishedUTC fields.
const eventDateLayout = "2006-01-02T15:04:05"

// EventRecord is one raw meeting record from the Legistar API. Records are
// never mutated after decoding; all derived values below are pure functions
// of the fields.
type EventRecord struct {
	ID                  int    `json:"EventId"`
	Guid                string `json:"EventGuid"`
	BodyID              int    `json:"EventBodyId"`
	BodyName            string `json:"EventBodyName"`
	Date                string `json:"EventDate"`
	Time                string `json:"EventTime"`
	AgendaStatusName    string `json:"EventAgendaStatusName"`
	Location            string `json:"EventLocation"`
	AgendaFile          string `json:"EventAgendaFile"`
	AgendaPublishedUTC  string `json:"EventAgendaLastPublishedUTC"`
	MinutesFile         string `json:"EventMinutesFile"`
	MinutesPublishedUTC string `json:"EventMinutesLastPublishedUTC"`
	InSiteURL           string `json:"EventInSiteURL"`
	Comment             string `json:"EventComment"`
}

// PairKey identifies a record for pairing purposes. Time of day is
// deliberately excluded: the SAP counterpart of a meeting often carries a
// placeholder time.
type PairKey struct {
	Body string
	Date string
}

// Less orders keys by body name, then date.
func (k PairKey) Less(other PairKey) bool {
	if k.Body != other.Body {
		return k.Body < other.Body
	}
	return k.Date < other.Date
}

// IsSecondaryLanguage reports whether the record is the Spanish-language
// counterpart of a meeting, identified by the body-name suffix marker.
func (e EventRecord) IsSecondaryLanguage() bool {
	return strings.HasSuffix(e.BodyName, sapSuffix)
}

// OwnKey returns the record's own pairing key, suffix included, so primary
// and secondary records never collide.
func (e EventRecord) OwnKey() PairKey {
	return PairKey{Body: e.BodyName, Date: e.Date}
}

// PartnerKey returns the key the record's other-language partner would have.
func (e EventRecord) PartnerKey() PairKey {
	return PairKey{Body: e.partnerName(), Date: e.Date}
}

// IsPartner reports whether other is this record's other-language partner.
func (e EventRecord) IsPartner(other EventRecord) bool {
	return e.partnerName() == other.BodyName && e.Date == other.Date
}

// PartnerFilter returns the OData filter that locates the record's partner
// in the events index.
func (e EventRecord) PartnerFilter() string {
	return fmt.Sprintf("EventBodyName eq '%s' and EventDate eq datetime'%s'", e.partnerName(), e.Date)
}

func (e EventRecord) partnerName() string {
	if e.IsSecondaryLanguage() {
		return strings.TrimSuffix(e.BodyName, sapSuffix)
	}
	return e.BodyName + sapSuffix
}

// DateTime parses the record's EventDate field.
func (e EventRecord) DateTime() (time.Time, error) {
	t, err := time.Parse(eventDateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("harvest: parse event date %q: %w", e.Date, err)
	}
	return t, nil
}

// Start combines the record's date and time fields in the given location.
// A blank time field yields midnight, which matches how placeholder SAP
// records are published.
func (e EventRecord) Start(loc *time.Location) (time.Time, error) {
	day, err := e.DateTime()
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	if e.Time == "" {
		return start, nil
	}
	clock, err := time.Parse("3:04 PM", strings.TrimSpace(e.Time))
	if err != nil {
		return time.Time{}, fmt.Errorf("harvest: parse event time %q: %w", e.Time, err)
	}
	return start.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// WebLink is a labeled hyperlink scraped from the web calendar.
type WebLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// WebRecord is the scraped web-calendar view of a meeting. Links the site
// renders as a bare "Not available" cell are represented as nil.
type WebRecord struct {
	DetailURL        string   `json:"detail_url"`
	Audio            *WebLink `json:"audio,omitempty"`
	EComment         string   `json:"ecomment,omitempty"`
	PublishedMinutes *WebLink `json:"published_minutes,omitempty"`
}

// HasAudio reports whether the meeting has a broadcast link.
func (w WebRecord) HasAudio() bool {
	return w.Audio != nil && w.Audio.URL != ""
}

// HasEcomment reports whether the meeting has a public-comment link.
func (w WebRecord) HasEcomment() bool {
	return w.EComment != ""
}

// HasPublishedMinutes reports whether the site lists a minutes file.
func (w WebRecord) HasPublishedMinutes() bool {
	return w.PublishedMinutes != nil && w.PublishedMinutes.URL != ""
}
