package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"metroharvest/internal/civic"
	"metroharvest/internal/report"
)

// notAvailable is the location sentinel required by the output schema when
// the source leaves the field blank.
const notAvailable = "Not available"

// boardPrefix marks events whose body name carries the meeting name after a
// dash, e.g. "Board of Directors - Regular Board Meeting".
const boardPrefix = "Board of Directors -"

// AgendaRecord is one line of the Legistar agenda grid for an event.
type AgendaRecord struct {
	Title        string `json:"EventItemTitle"`
	MatterFile   string `json:"EventItemMatterFile"`
	MatterStatus string `json:"EventItemMatterStatus"`
	MatterType   string `json:"EventItemMatterType"`
	AgendaNumber string `json:"EventItemAgendaNumber"`
	Sequence     int    `json:"EventItemAgendaSequence"`
}

// AgendaLister returns the agenda grid lines for an event.
type AgendaLister interface {
	AgendaItems(ctx context.Context, ev EventRecord) ([]AgendaRecord, error)
}

// RedirectResolver resolves a broadcast link to the URL its redirect points
// at. An empty result means the redirect target is not ready yet.
type RedirectResolver interface {
	ResolveRedirect(ctx context.Context, url string) (string, error)
}

// Normalizer maps merged events into the civic output schema.
type Normalizer struct {
	APIBaseURL  string
	CalendarURL string
	Agenda      AgendaLister
	Redirects   RedirectResolver
	Minutes     *MinutesFinder
	Reporter    report.Reporter
	Log         *slog.Logger
	Timezone    *time.Location
}

// EventStatus maps the Legistar agenda-status name to a civic status. The
// mapping is total: unknown statuses are tentative.
func EventStatus(agendaStatusName string) string {
	switch {
	case strings.HasPrefix(agendaStatusName, "Final"):
		return civic.StatusPassed
	case agendaStatusName == "Draft":
		return civic.StatusConfirmed
	case agendaStatusName == "Canceled":
		return civic.StatusCancelled
	default:
		return civic.StatusTentative
	}
}

// Normalize builds the civic event for a merged record.
func (n *Normalizer) Normalize(ctx context.Context, m MergedEvent) (*civic.Event, error) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}

	start, err := m.Start(n.Timezone)
	if err != nil {
		return nil, err
	}

	bodyName, eventName := splitBodyName(m.BodyName)

	location := m.Location
	if location == "" {
		// Some events legitimately have no location, but the output schema
		// requires one.
		location = notAvailable
	}

	ev := civic.NewEvent(eventName, start, location, EventStatus(m.AgendaStatusName))
	ev.ID = strconv.Itoa(m.ID)
	ev.Extras["guid"] = m.Guid
	ev.Extras["approved_minutes"] = false

	apiURL := fmt.Sprintf("%s/events/%d", n.APIBaseURL, m.ID)
	ev.AddSource(apiURL, "api")

	if m.SAPEventGuid != "" {
		log.Info("found SAP event", "body", m.BodyName, "date", m.Date)
		ev.Extras["sap_guid"] = m.SAPEventGuid
	}
	if m.SAPEventID != 0 {
		ev.AddSource(fmt.Sprintf("%s/events/%d", n.APIBaseURL, m.SAPEventID), "api (sap)")
	}

	if m.Web.HasEcomment() {
		log.Info("adding eComment link", "url", m.Web.EComment, "detail_url", m.Web.DetailURL)
		ev.Extras["ecomment"] = m.Web.EComment
	}

	// Without a detail page on the site, the agenda grid in the API is not
	// trustworthy; skip it.
	if len(m.Details) > 0 && n.Agenda != nil {
		if err := n.addAgenda(ctx, m, ev, apiURL); err != nil {
			log.Warn("agenda unavailable", "event_id", m.ID, "error", err)
		}
	}

	ev.AddParticipant(bodyName, "organization")

	n.addDocuments(ctx, m, ev)
	n.addMedia(ctx, m, ev, log)

	for _, link := range m.Details {
		ev.AddSource(link.URL, link.Note)
	}
	if len(m.Details) == 0 {
		ev.AddSource(n.CalendarURL, "web")
	}

	return ev, nil
}

func (n *Normalizer) addAgenda(ctx context.Context, m MergedEvent, ev *civic.Event, apiURL string) error {
	items, err := n.Agenda.AgendaItems(ctx, m.EventRecord)
	if err != nil {
		return err
	}

	seen := make(map[int]struct{}, len(items))
	duplicated := false
	for _, item := range items {
		agendaItem := ev.AddAgendaItem(item.Title)
		agendaItem.Extras = map[string]any{}

		if file := matterFile(item); file != "" {
			agendaItem.Bill = file
		}

		if item.AgendaNumber != "" {
			agendaItem.Notes = append(agendaItem.Notes, fmt.Sprintf("Agenda number, %s", item.AgendaNumber))
			agendaItem.Extras["agenda_number"] = item.AgendaNumber
		}

		// The sequence is the line number of the Legistar agenda grid.
		agendaItem.Extras["item_agenda_sequence"] = item.Sequence
		if _, ok := seen[item.Sequence]; ok {
			duplicated = true
		}
		seen[item.Sequence] = struct{}{}
	}

	// Legistar has historically duplicated grid line numbers. Keep the
	// items and ask the clerk to clean the data instead of failing.
	if duplicated {
		reporter := n.Reporter
		if reporter == nil {
			reporter = report.NewLogReporter(n.Log)
		}
		reporter.Report(ctx, report.New(
			report.SeverityError,
			fmt.Sprintf("an agenda has duplicate agenda items on the Legistar grid: %s on %s (%s); ask the clerk to remove the duplicate EventItemAgendaSequence", ev.Name, ev.StartDate.Format("January 2, 2006"), apiURL),
			map[string]string{"event_id": strconv.Itoa(m.ID)},
		))
	}

	return nil
}

// matterFile applies the source-trust suppression rules: matters the site
// hides on the rendered agenda must not surface here either.
func matterFile(item AgendaRecord) string {
	if item.MatterFile == "" {
		return ""
	}
	if item.MatterStatus == "Draft" || item.MatterType == "Closed Session" {
		return ""
	}
	return item.MatterFile
}

func (n *Normalizer) addDocuments(ctx context.Context, m MergedEvent, ev *civic.Event) {
	if m.AgendaFile != "" {
		ev.AddDocument("Agenda", m.AgendaFile, "application/pdf", utcDate(m.AgendaPublishedUTC))
	}

	switch {
	case m.MinutesFile != "":
		ev.AddDocument("Minutes", m.MinutesFile, "application/pdf", utcDate(m.MinutesPublishedUTC))
	case m.Web.HasPublishedMinutes():
		ev.AddDocument(m.Web.PublishedMinutes.Label, m.Web.PublishedMinutes.URL, "application/pdf", "")
	case n.Minutes != nil:
		for _, minutes := range n.Minutes.Find(ctx, m) {
			ev.AddDocument(minutes.Name, minutes.Hyperlink, "application/pdf", utcDate(minutes.LastModifiedUTC))
			ev.Extras["approved_minutes"] = true
		}
	}
}

func (n *Normalizer) addMedia(ctx context.Context, m MergedEvent, ev *civic.Event, log *slog.Logger) {
	for _, audio := range m.Audio {
		if n.Redirects == nil {
			ev.AddMediaLink(audio.Label, audio.URL, "text/html")
			continue
		}
		target, err := n.Redirects.ResolveRedirect(ctx, audio.URL)
		if err != nil || target == "" {
			// The redirect does not carry the audio location until the
			// recording is processed. Skip and pick it up next scrape.
			log.Info("audio redirect not ready, skipping", "url", audio.URL)
			continue
		}
		ev.AddMediaLink(audio.Label, target, "text/html")
	}
}

// splitBodyName separates the owning organization from the meeting name for
// board events; for every other body the two are the same.
func splitBodyName(name string) (bodyName, eventName string) {
	if strings.Contains(name, boardPrefix) {
		parts := strings.SplitN(name, "-", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return name, name
}

// utcDate renders a Legistar UTC timestamp as a bare date, or empty when
// the timestamp is missing or malformed.
func utcDate(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(eventDateLayout, ts)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
