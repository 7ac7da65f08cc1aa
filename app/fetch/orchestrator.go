package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/lysyi3m/rent-comb/app/apperr"
	"github.com/lysyi3m/rent-comb/app/listing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

type Options struct {
	UserAgent string
	Workers   int
	RateLimit float64 // detail requests per second, <= 0 for unlimited
	RetryMax  int
}

// Result is the outcome for one discovered link. Listing is nil when the
// detail page could not be fetched or parsed.
type Result struct {
	ID      string
	Listing *listing.Listing
}

// Orchestrator runs the network side of a poll cycle: one search request,
// then a bounded concurrent fetch of every discovered detail page.
type Orchestrator struct {
	profile      *listing.Profile
	searchURL    *url.URL
	http         *retryablehttp.Client
	limiter      *rate.Limiter
	userAgent    string
	workers      int
	searchParser *listing.SearchPageParser
	parser       *listing.Parser
}

func NewOrchestrator(profile *listing.Profile, opts Options) (*Orchestrator, error) {
	searchURL, err := url.Parse(profile.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Jar = jar
	rc.HTTPClient.Timeout = profile.Timeout()
	rc.Logger = slog.Default()

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Orchestrator{
		profile:      profile,
		searchURL:    searchURL,
		http:         rc,
		limiter:      rate.NewLimiter(limit, 1),
		userAgent:    userAgent,
		workers:      workers,
		searchParser: listing.NewSearchPageParser(profile),
		parser:       listing.NewParser(profile),
	}, nil
}

// RunCycle searches with filter and fetches every result. The error is
// non-nil only when the search itself failed; detail failures become nil
// listings. Results keep search page order.
func (o *Orchestrator) RunCycle(ctx context.Context, filter listing.Filter) ([]Result, error) {
	links, err := o.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	slog.Debug("Search completed", "profile", o.profile.Name, "links", len(links))

	return o.FetchDetails(ctx, links), nil
}

// Search posts the filter form and returns the discovered result links.
// With session priming the form is posted twice; the site keeps filter state
// in a cookie and only the second response reflects it.
func (o *Orchestrator) Search(ctx context.Context, filter listing.Filter) ([]listing.Link, error) {
	body := o.searchForm(filter).Encode()

	attempts := 1
	if o.profile.PrimeSession() {
		attempts = 2
	}

	var doc *goquery.Document
	for i := 0; i < attempts; i++ {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, o.searchURL.String(), strings.NewReader(body))
		if err != nil {
			return nil, apperr.Transport("search request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		o.setHeaders(req)

		doc, err = o.fetchDocument(req)
		if err != nil {
			return nil, apperr.Transport("search request", err)
		}
	}

	links, err := o.searchParser.Parse(o.searchURL, doc)
	if err != nil {
		return nil, apperr.Extraction("search page", err)
	}

	return links, nil
}

// FetchDetails fetches and parses every link concurrently and waits for all
// of them. A failure only affects its own result.
func (o *Orchestrator) FetchDetails(ctx context.Context, links []listing.Link) []Result {
	results := make([]Result, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, link := range links {
		results[i].ID = link.ID

		g.Go(func() error {
			l, err := o.fetchDetail(gctx, link)
			if err != nil {
				slog.Error("Detail fetch failed", "id", link.ID, "url", link.Href,
					"kind", apperr.KindOf(err), "error", err)
				return nil
			}
			results[i].Listing = l
			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (o *Orchestrator) fetchDetail(ctx context.Context, link listing.Link) (*listing.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, o.profile.Timeout())
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, apperr.Transport("detail request", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, link.Href, nil)
	if err != nil {
		return nil, apperr.Transport("detail request", err)
	}
	o.setHeaders(req)

	doc, err := o.fetchDocument(req)
	if err != nil {
		return nil, apperr.Transport("detail request", err)
	}

	l, err := o.parser.Parse(link.Href, link.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	return l, nil
}

func (o *Orchestrator) fetchDocument(req *retryablehttp.Request) (*goquery.Document, error) {
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" {
		return nil, fmt.Errorf("unexpected content type %q from %s", resp.Header.Get("Content-Type"), req.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

func (o *Orchestrator) searchForm(filter listing.Filter) url.Values {
	form := url.Values{}
	params := o.profile.Params

	if filter.MinPrice > 0 {
		form.Set(params.MinPrice, strconv.Itoa(filter.MinPrice))
	}
	if filter.MaxPrice > 0 {
		form.Set(params.MaxPrice, strconv.Itoa(filter.MaxPrice))
	}
	if filter.MinArea > 0 {
		form.Set(params.MinArea, strconv.Itoa(filter.MinArea))
	}

	return form
}

func (o *Orchestrator) setHeaders(req *retryablehttp.Request) {
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Accept", "*/*")
}

// Listings returns the successfully parsed listings of a cycle in order.
func Listings(results []Result) []listing.Listing {
	out := make([]listing.Listing, 0, len(results))
	for _, r := range results {
		if r.Listing != nil {
			out = append(out, *r.Listing)
		}
	}
	return out
}
