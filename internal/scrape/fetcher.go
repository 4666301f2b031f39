// Package scrape walks the survey site's paginated listing and detail pages
// and emits raw label/value records newer than the fetch watermark.
package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"gradtrack-engine/internal/config"
	"gradtrack-engine/internal/domain"
	"gradtrack-engine/internal/extract"
)

type Fetcher struct {
	cfg     config.Config
	hc      *resty.Client
	policy  AccessPolicy
	baseURL *url.URL
	delay   *backoff
}

func New(cfg config.Config) (*Fetcher, error) {
	base, err := url.Parse(cfg.Source.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if d := cfg.BaseDelay(); d > 0 {
		lim = rate.NewLimiter(rate.Every(d), 1)
	}

	return &Fetcher{
		cfg:     cfg,
		hc:      newClient(cfg, lim),
		policy:  NewAccessPolicy(cfg.Source.DisallowedPaths),
		baseURL: base,
		delay:   newBackoff(cfg.BaseDelay(), cfg.MaxDelay()),
	}, nil
}

var addedOnRE = regexp.MustCompile(`\bAdded on\s+([A-Za-z]+\s+\d{1,2},\s*\d{4})`)

// Fetch walks listing pages newest-first and emits one RawRecord per detail
// page whose date is strictly newer than since. An emit error aborts the
// walk. Fetching stops as soon as a listing entry at or older than the
// watermark is seen, when the record cap is hit, or when a page has no more
// detail links.
func (f *Fetcher) Fetch(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error) {
	fetched := 0

	for page := 1; page <= f.cfg.Source.MaxPages; page++ {
		listURL := f.cfg.Source.BaseURL
		if page > 1 {
			listURL = fmt.Sprintf("%s?page=%d", f.cfg.Source.BaseURL, page)
		}

		doc, err := f.getDocument(ctx, listURL)
		if err != nil {
			return fetched, fmt.Errorf("listing page %d: %w", page, err)
		}

		links := doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.Contains(a.Text(), "See More")
		})
		if links.Length() == 0 {
			log.Printf("[fetch] no detail links on page %d, stopping", page)
			return fetched, nil
		}

		var walkErr error
		done := false
		links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if ctx.Err() != nil {
				walkErr = ctx.Err()
				return false
			}

			cardAdded := cardDate(a)
			if cardAdded != nil && !cardAdded.After(since) {
				// listings are time-ordered descending, nothing newer follows
				done = true
				return false
			}

			href, ok := a.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return true
			}
			detailURL, perr := f.resolve(href)
			if perr != nil {
				log.Printf("[fetch] skip unparseable href %q: %v", href, perr)
				return true
			}
			if !f.policy.Allows(detailURL) {
				log.Printf("[fetch] skip disallowed path %s", detailURL.Path)
				return true
			}

			rec, ferr := f.fetchDetail(ctx, detailURL, cardAdded)
			if ferr != nil {
				// one unreachable detail page never fails the run
				log.Printf("[fetch] skip %s: %v", detailURL, ferr)
				f.delay.Bump()
			} else {
				f.delay.Ease()

				if rec.AddedOn != nil && !rec.AddedOn.After(since) {
					done = true
					return false
				}
				if eerr := emit(rec); eerr != nil {
					walkErr = eerr
					return false
				}
				fetched++
				if fetched >= f.cfg.Source.MaxRecords {
					done = true
					return false
				}
			}

			if !f.pause(ctx) {
				walkErr = ctx.Err()
				return false
			}
			return true
		})

		if walkErr != nil || done {
			return fetched, walkErr
		}
	}
	return fetched, nil
}

// cardDate reads the "Added on Month D, YYYY" text off the listing card that
// wraps the detail link, so old entries can be skipped before fetching.
func cardDate(a *goquery.Selection) *time.Time {
	card := a.Closest("article, li, section, div")
	if card.Length() == 0 {
		card = a.Parent()
	}
	m := addedOnRE.FindStringSubmatch(card.Text())
	if m == nil {
		return nil
	}
	return extract.ParseDate(m[1])
}

// fetchDetail reads the dt/dd label pairs off one detail page.
func (f *Fetcher) fetchDetail(ctx context.Context, u *url.URL, cardAdded *time.Time) (domain.RawRecord, error) {
	rec := domain.RawRecord{
		DetailURL: u.String(),
		AddedOn:   cardAdded,
		Fields:    map[string]string{},
	}

	doc, err := f.getDocument(ctx, u.String())
	if err != nil {
		return rec, err
	}

	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		label := strings.TrimSpace(dt.Text())
		value := strings.TrimSpace(dd.Text())
		if label != "" && value != "" {
			rec.Fields[label] = value
		}
	})

	// the detail page's own "Added on" beats the listing card's
	if v, ok := lookupAddedOn(rec.Fields); ok {
		if t := extract.ParseDate(v); t != nil {
			rec.AddedOn = t
		}
	}

	return rec, nil
}

func lookupAddedOn(fields map[string]string) (string, bool) {
	for label, value := range fields {
		norm := strings.ToLower(strings.Join(strings.Fields(label), " "))
		if strings.TrimSuffix(norm, ":") == "added on" {
			return value, true
		}
	}
	return "", false
}

func (f *Fetcher) resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	return f.baseURL.ResolveReference(ref), nil
}

func (f *Fetcher) getDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := f.hc.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// pause sleeps the current adaptive delay; returns false (stop iterating)
// when the context is cancelled.
func (f *Fetcher) pause(ctx context.Context) bool {
	d := f.delay.Current()
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
