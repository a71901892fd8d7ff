// Package civic defines the common civic-data schema produced by the
// harvester and consumed by the downstream publishing application.
package civic

import "time"

// Event statuses understood by the downstream application.
const (
	StatusPassed    = "passed"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusTentative = "tentative"
)

// Event is one normalized public meeting.
type Event struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	StartDate    time.Time      `json:"start_date"`
	Description  string         `json:"description"`
	Location     string         `json:"location"`
	Status       string         `json:"status"`
	Agenda       []AgendaItem   `json:"agenda"`
	Documents    []Document     `json:"documents"`
	Media        []MediaLink    `json:"media"`
	Sources      []SourceRef    `json:"sources"`
	Participants []Participant  `json:"participants"`
	Extras       map[string]any `json:"extras"`
}

// AgendaItem is a single line of a meeting agenda.
type AgendaItem struct {
	Description string         `json:"description"`
	Bill        string         `json:"bill,omitempty"`
	Notes       []string       `json:"notes,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
}

// Document is a link to a meeting document such as an agenda or minutes file.
type Document struct {
	Note      string `json:"note"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Date      string `json:"date,omitempty"`
}

// MediaLink is a link to meeting media such as an audio broadcast.
type MediaLink struct {
	Note      string `json:"note"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// SourceRef records where a piece of the event was harvested from.
type SourceRef struct {
	URL  string `json:"url"`
	Note string `json:"note"`
}

// Participant is a person or organization attached to the event.
type Participant struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewEvent constructs an event with the fields every record must carry.
func NewEvent(name string, start time.Time, location, status string) *Event {
	return &Event{
		Name:      name,
		StartDate: start,
		Location:  location,
		Status:    status,
		Extras:    map[string]any{},
	}
}

// AddAgendaItem appends an agenda line and returns a pointer to it so the
// caller can attach notes and extras.
func (e *Event) AddAgendaItem(description string) *AgendaItem {
	e.Agenda = append(e.Agenda, AgendaItem{Description: description})
	return &e.Agenda[len(e.Agenda)-1]
}

// AddDocument appends a document link.
func (e *Event) AddDocument(note, url, mediaType, date string) {
	e.Documents = append(e.Documents, Document{Note: note, URL: url, MediaType: mediaType, Date: date})
}

// AddMediaLink appends a media link, ignoring entries whose URL is already
// present. The duplicate check exists because upstream sometimes points two
// differently-labeled links at the same file.
func (e *Event) AddMediaLink(note, url, mediaType string) bool {
	for _, m := range e.Media {
		if m.URL == url {
			return false
		}
	}
	e.Media = append(e.Media, MediaLink{Note: note, URL: url, MediaType: mediaType})
	return true
}

// AddSource appends a source reference.
func (e *Event) AddSource(url, note string) {
	e.Sources = append(e.Sources, SourceRef{URL: url, Note: note})
}

// AddParticipant appends a participant.
func (e *Event) AddParticipant(name, typ string) {
	e.Participants = append(e.Participants, Participant{Name: name, Type: typ})
}
