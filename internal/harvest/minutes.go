package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"metroharvest/internal/report"
)

// minutesBodies are the bodies known to file their approved minutes as a
// separate legislative matter rather than attaching them to the event.
var minutesBodies = map[string]struct{}{
	"Board of Directors - Regular Board Meeting": {},
	"LA SAFE": {},
}

// placeholderBody is a bogus body name Legistar staff park matters under
// before cleanup. Matters filed there are never real minutes.
const placeholderBody = "TO BE REMOVED"

// Matter is a legislative matter record from the Legistar API.
type Matter struct {
	ID                 int    `json:"MatterId"`
	BodyID             int    `json:"MatterBodyId"`
	BodyName           string `json:"MatterBodyName"`
	Title              string `json:"MatterTitle"`
	StatusName         string `json:"MatterStatusName"`
	TypeName           string `json:"MatterTypeName"`
	RestrictViewViaWeb bool   `json:"MatterRestrictViewViaWeb"`
}

// Attachment is a file attached to a matter.
type Attachment struct {
	Name            string `json:"MatterAttachmentName"`
	Hyperlink       string `json:"MatterAttachmentHyperlink"`
	LastModifiedUTC string `json:"MatterAttachmentLastModifiedUtc"`
}

// MatterSearcher queries the matter index with an OData filter.
type MatterSearcher interface {
	SearchMatters(ctx context.Context, filter string) ([]Matter, error)
}

// AttachmentLister returns the attachments of a matter.
type AttachmentLister interface {
	MatterAttachments(ctx context.Context, matterID int) ([]Attachment, error)
}

// BinaryFetcher downloads raw bytes from a URL.
type BinaryFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// PageTextExtractor extracts the text layer of the first page of a PDF.
// An empty string with a nil error means the page has no text layer.
type PageTextExtractor interface {
	FirstPageText(data []byte) (string, error)
}

// OCR recovers text from the first page of a PDF by rasterizing it and
// running optical character recognition.
type OCR interface {
	FirstPageOCR(ctx context.Context, data []byte) (string, error)
}

// MinutesFinder locates the approved minutes of a meeting filed as a
// subsequent legislative matter.
type MinutesFinder struct {
	Matters     MatterSearcher
	Attachments AttachmentLister
	Binary      BinaryFetcher
	Extractor   PageTextExtractor
	OCR         OCR
	Reporter    report.Reporter
	Log         *slog.Logger
	Timezone    *time.Location

	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time
}

// Find returns the approved-minutes attachments for the meeting, or nil
// when the meeting is not expected to file minutes this way or none could
// be located. Every per-candidate failure is isolated to that candidate.
func (f *MinutesFinder) Find(ctx context.Context, ev MergedEvent) []Attachment {
	log := f.Log
	if log == nil {
		log = slog.Default()
	}
	reporter := f.Reporter
	if reporter == nil {
		reporter = report.NewLogReporter(log)
	}

	if _, ok := minutesBodies[ev.BodyName]; !ok {
		return nil
	}

	start, err := ev.Start(f.Timezone)
	if err != nil {
		log.Warn("cannot determine meeting start, skipping minutes lookup", "event_id", ev.ID, "error", err)
		return nil
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	// Minutes cannot have been approved before the meeting happens.
	if start.After(now()) {
		return nil
	}

	date := longDate(start)
	filter := fmt.Sprintf(
		"MatterBodyId eq %d and substringof('%s', MatterTitle) and "+
			"((MatterTypeName eq 'Minutes') or "+
			"(substringof('Minutes', MatterTitle) and MatterTypeName eq 'Informational Report'))",
		ev.BodyID, date,
	)

	matters, err := f.Matters.SearchMatters(ctx, filter)
	if err != nil {
		log.Warn("matter search failed", "body", ev.BodyName, "date", date, "error", err)
		return nil
	}

	var found []Attachment
	for _, matter := range matters {
		if matter.RestrictViewViaWeb || matter.StatusName == "Draft" || matter.BodyName == placeholderBody {
			continue
		}

		attachments, err := f.Attachments.MatterAttachments(ctx, matter.ID)
		if err != nil {
			log.Warn("attachment listing failed", "matter_id", matter.ID, "error", err)
			continue
		}

		switch {
		case len(attachments) == 0:
			reporter.Report(ctx, report.New(
				report.SeverityError,
				fmt.Sprintf("no attachments for the approved minutes matter %d; confirm with the clerk whether this should have an attachment", matter.ID),
				map[string]string{"matter_id": fmt.Sprint(matter.ID), "body": ev.BodyName, "date": date},
			))
		case len(attachments) == 1:
			found = append(found, attachments[0])
		default:
			// Multiple attachments: keep only the one that reads like a
			// minutes cover page.
			for _, attach := range attachments {
				ok, err := f.looksLikeMinutes(ctx, ev.BodyName, attach)
				if err != nil {
					log.Warn("could not inspect attachment", "matter_id", matter.ID, "attachment", attach.Name, "error", err)
					continue
				}
				if ok {
					found = append(found, attach)
					break
				}
			}
		}
	}

	if len(found) == 0 {
		log.Warn("couldn't find minutes", "body", ev.BodyName, "date", date)
	}

	return found
}

// looksLikeMinutes fetches the attachment and checks its first page for the
// word "minutes" and the owning body's name. When the page has no text
// layer, the OCR path tolerates noise by accepting a bounded-edit-distance
// line match for the body name.
func (f *MinutesFinder) looksLikeMinutes(ctx context.Context, bodyName string, attach Attachment) (bool, error) {
	data, err := f.Binary.FetchBytes(ctx, attach.Hyperlink)
	if err != nil {
		return false, fmt.Errorf("fetch attachment: %w", err)
	}

	text, err := f.Extractor.FirstPageText(data)
	if err != nil {
		return false, fmt.Errorf("parse document: %w", err)
	}

	fuzzy := false
	if strings.TrimSpace(text) == "" {
		if f.OCR == nil {
			return false, nil
		}
		text, err = f.OCR.FirstPageOCR(ctx, data)
		if err != nil {
			return false, fmt.Errorf("ocr document: %w", err)
		}
		fuzzy = true
	}

	page := strings.ToLower(text)
	if !strings.Contains(page, "minutes") {
		return false, nil
	}

	name := strings.ToLower(bodyName)
	if strings.Contains(page, name) {
		return true, nil
	}
	return fuzzy && anyLineWithinDistance(name, page, 2), nil
}

// anyLineWithinDistance reports whether any line of corpus is within
// maxDistance edits of target.
func anyLineWithinDistance(target, corpus string, maxDistance int) bool {
	for _, line := range strings.Split(corpus, "\n") {
		if levenshtein.ComputeDistance(target, strings.TrimSpace(line)) <= maxDistance {
			return true
		}
	}
	return false
}

// longDate formats a date the way matter titles spell it, with no zero
// padding on the day.
func longDate(t time.Time) string {
	return fmt.Sprintf("%s %d, %d", t.Month(), t.Day(), t.Year())
}
