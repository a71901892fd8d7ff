package legistar

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gocolly/colly"

	"metroharvest/internal/harvest"
)

// notAvailableCell is how the site renders an absent link, with a
// non-breaking space.
const notAvailableCell = "Not available"

// windowOpenURL pulls the target out of the onclick handler the site uses
// for its media player links.
var windowOpenURL = regexp.MustCompile(`window\.open\('([^']+)'`)

// webEvent scrapes the meeting detail page for the fields the API does not
// expose: the broadcast link, the eComment link, and the published minutes.
func (c *Client) webEvent(ctx context.Context, url string) (harvest.WebRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return harvest.WebRecord{}, err
	}

	web := harvest.WebRecord{DetailURL: url}

	col := colly.NewCollector(colly.UserAgent("metroharvest"))

	col.OnHTML("a[id$='hypVideo']", func(e *colly.HTMLElement) {
		label := cellText(e.Text)
		if label == "" {
			return
		}
		target := e.Attr("href")
		if m := windowOpenURL.FindStringSubmatch(e.Attr("onclick")); m != nil {
			target = m[1]
		}
		if target == "" || target == "#" {
			return
		}
		web.Audio = &harvest.WebLink{Label: label, URL: e.Request.AbsoluteURL(target)}
	})

	col.OnHTML("a[id$='hypEComment']", func(e *colly.HTMLElement) {
		if href := e.Attr("href"); href != "" {
			web.EComment = e.Request.AbsoluteURL(href)
		}
	})

	col.OnHTML("a[id$='hypMinutes']", func(e *colly.HTMLElement) {
		label := cellText(e.Text)
		href := e.Attr("href")
		if label == "" || href == "" {
			return
		}
		web.PublishedMinutes = &harvest.WebLink{Label: label, URL: e.Request.AbsoluteURL(href)}
	})

	var scrapeErr error
	col.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("legistar: scrape %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := col.Visit(url); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("legistar: scrape %s: %w", url, err)
	}
	if scrapeErr != nil {
		return harvest.WebRecord{}, scrapeErr
	}
	return web, nil
}

// cellText normalizes a grid cell label, treating the site's placeholder
// as absent.
func cellText(s string) string {
	s = strings.TrimSpace(s)
	if s == notAvailableCell || strings.ReplaceAll(s, " ", " ") == "Not available" {
		return ""
	}
	return s
}
