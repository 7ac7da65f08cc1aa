package listing

import (
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// HeaderRowID marks the column-title row of the results table.
const HeaderRowID = "head_line"

// SearchPageParser discovers result rows on a search page. Rows carry no
// stable class, so they are located by position under the results container.
type SearchPageParser struct {
	container string
}

func NewSearchPageParser(profile *Profile) *SearchPageParser {
	return &SearchPageParser{container: profile.Selectors.Results}
}

func (p *SearchPageParser) Parse(baseURL *url.URL, doc *goquery.Document) ([]Link, error) {
	container := doc.Find(p.container).First()
	if container.Length() == 0 {
		return nil, &ExtractionError{Reason: ReasonNoMatch, Path: p.container}
	}

	origin := &url.URL{Scheme: baseURL.Scheme, Host: baseURL.Host}
	seen := make(map[string]bool)
	var links []Link

	container.Children().Each(func(_ int, row *goquery.Selection) {
		// Promoted rows are styled inline.
		if _, styled := row.Attr("style"); styled {
			return
		}

		id, ok := row.Attr("id")
		if !ok || id == "" || id == HeaderRowID {
			return
		}

		href, ok := row.Children().First().Next().Children().First().Attr("href")
		if !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			slog.Debug("Skipping row with malformed link", "id", id, "href", href, "error", err)
			return
		}

		if seen[id] {
			return
		}
		seen[id] = true

		links = append(links, Link{ID: id, Href: origin.ResolveReference(ref).String()})
	})

	return links, nil
}
