// Package legistar is a client for the Legistar web API and the rendered
// legistar.com calendar. It implements the collaborator interfaces the
// harvest package consumes.
package legistar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"metroharvest/internal/harvest"
)

// pageSize is the maximum number of rows the API returns per request.
const pageSize = 1000

// Client talks to one Legistar instance.
type Client struct {
	rest    *resty.Client
	head    *resty.Client
	base    string
	token   string
	limiter *rate.Limiter
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken attaches the API token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRequestsPerSecond caps the request rate against the API.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest = resty.NewWithClient(hc)
		c.head = resty.NewWithClient(hc).SetRedirectPolicy(resty.NoRedirectPolicy())
	}
}

// NewClient constructs a client with sane defaults.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		rest:    resty.New().SetTimeout(60 * time.Second).SetRetryCount(3),
		head:    resty.New().SetTimeout(60 * time.Second).SetRedirectPolicy(resty.NoRedirectPolicy()),
		base:    baseURL,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req := c.rest.R().SetContext(ctx).SetQueryParams(params)
	if c.token != "" {
		req.SetQueryParam("token", c.token)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("legistar: get %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("legistar: get %s: status %d", path, resp.StatusCode())
	}
	c.log.Debug("legistar request", "path", path, "status", resp.StatusCode(), "duration", resp.Time())
	return nil
}

// getPaged follows the API's $top/$skip paging until a short page comes
// back. fetch decodes one page and reports how many rows it held.
func (c *Client) getPaged(ctx context.Context, path string, params map[string]string, fetch func(page map[string]string) (int, error)) error {
	skip := 0
	for {
		page := map[string]string{"$top": fmt.Sprint(pageSize)}
		for k, v := range params {
			page[k] = v
		}
		if skip > 0 {
			page["$skip"] = fmt.Sprint(skip)
		}
		n, err := fetch(page)
		if err != nil {
			return err
		}
		if n < pageSize {
			return nil
		}
		skip += n
	}
}

// Events returns event records, optionally limited to those modified since
// the given instant.
func (c *Client) Events(ctx context.Context, since *time.Time) ([]harvest.EventRecord, error) {
	params := map[string]string{}
	if since != nil {
		params["$filter"] = fmt.Sprintf("EventLastModifiedUtc gt datetime'%s'", since.Format("2006-01-02T15:04:05"))
	}

	var all []harvest.EventRecord
	err := c.getPaged(ctx, "/events/", params, func(page map[string]string) (int, error) {
		var batch []harvest.EventRecord
		if err := c.get(ctx, "/events/", page, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// EventsByID returns the records for an explicit identifier list.
func (c *Client) EventsByID(ctx context.Context, ids []int) ([]harvest.EventRecord, error) {
	events := make([]harvest.EventRecord, 0, len(ids))
	for _, id := range ids {
		var ev harvest.EventRecord
		if err := c.get(ctx, fmt.Sprintf("/events/%d", id), nil, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// EventDetail fetches the full API record and the scraped web detail page
// for an event.
func (c *Client) EventDetail(ctx context.Context, ev harvest.EventRecord) (harvest.EventRecord, harvest.WebRecord, error) {
	var detail harvest.EventRecord
	if err := c.get(ctx, fmt.Sprintf("/events/%d", ev.ID), nil, &detail); err != nil {
		return harvest.EventRecord{}, harvest.WebRecord{}, err
	}

	if detail.InSiteURL == "" {
		return detail, harvest.WebRecord{}, nil
	}

	web, err := c.webEvent(ctx, detail.InSiteURL)
	if err != nil {
		return harvest.EventRecord{}, harvest.WebRecord{}, err
	}
	return detail, web, nil
}

// FindPartner searches the events index with an OData filter.
func (c *Client) FindPartner(ctx context.Context, filter string) ([]harvest.EventRecord, error) {
	var events []harvest.EventRecord
	if err := c.get(ctx, "/events/", map[string]string{"$filter": filter}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SearchMatters searches the matter index with an OData filter.
func (c *Client) SearchMatters(ctx context.Context, filter string) ([]harvest.Matter, error) {
	var matters []harvest.Matter
	err := c.getPaged(ctx, "/matters/", map[string]string{"$filter": filter}, func(page map[string]string) (int, error) {
		var batch []harvest.Matter
		if err := c.get(ctx, "/matters/", page, &batch); err != nil {
			return 0, err
		}
		matters = append(matters, batch...)
		return len(batch), nil
	})
	if err != nil {
		return nil, err
	}
	return matters, nil
}

// MatterAttachments returns the attachments of a matter.
func (c *Client) MatterAttachments(ctx context.Context, matterID int) ([]harvest.Attachment, error) {
	var attachments []harvest.Attachment
	if err := c.get(ctx, fmt.Sprintf("/matters/%d/attachments", matterID), nil, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

// AgendaItems returns the agenda grid lines for an event, in grid order.
func (c *Client) AgendaItems(ctx context.Context, ev harvest.EventRecord) ([]harvest.AgendaRecord, error) {
	var items []harvest.AgendaRecord
	params := map[string]string{
		"$filter":  "EventItemTitle ne null",
		"$orderby": "EventItemMinutesSequence, EventItemAgendaSequence",
	}
	if err := c.get(ctx, fmt.Sprintf("/events/%d/eventitems", ev.ID), params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ServiceCouncilBodyIDs returns the identifiers of service council bodies
// and their public-hearing variants.
func (c *Client) ServiceCouncilBodyIDs(ctx context.Context) (map[int]struct{}, error) {
	var bodies []struct {
		BodyID int `json:"BodyId"`
	}
	params := map[string]string{"$filter": "BodyTypeId eq 70 or BodyTypeId eq 75"}
	if err := c.get(ctx, "/bodies/", params, &bodies); err != nil {
		return nil, err
	}
	ids := make(map[int]struct{}, len(bodies))
	for _, b := range bodies {
		ids[b.BodyID] = struct{}{}
	}
	return ids, nil
}

// FetchBytes downloads raw bytes, e.g. an attachment PDF.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("legistar: fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("legistar: fetch %s: status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}

// ResolveRedirect issues a HEAD request without following redirects and
// returns the Location target, or empty when the redirect is not ready.
func (c *Client) ResolveRedirect(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.head.R().SetContext(ctx).Head(url)
	if resp == nil {
		return "", fmt.Errorf("legistar: head %s: %w", url, err)
	}
	// The no-redirect policy surfaces the 3xx response alongside an error;
	// the Location header is all we are after.
	return resp.Header().Get("Location"), nil
}

// PageAvailable reports whether a web page responds with a success status.
func (c *Client) PageAvailable(ctx context.Context, url string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}
	resp, err := c.rest.R().SetContext(ctx).Head(url)
	return err == nil && resp.StatusCode() == http.StatusOK
}
