package listing

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/rent-comb/app/apperr"
)

func mustDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

const extractorPage = `
<html><body>
	<div id="title">   Two-room flat
	</div>
	<a id="map" onclick="show()">Map</a>
	<span id="area">45,5 m²</span>
	<span id="rooms">3</span>
	<span id="empty">   </span>
	<span id="words">not a number</span>
</body></html>`

func TestExtractorText(t *testing.T) {
	ex := NewExtractor(mustDocument(t, extractorPage))

	text, err := ex.Text("#title")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if text != "Two-room flat" {
		t.Errorf("Expected trimmed text 'Two-room flat', got '%s'", text)
	}
}

func TestExtractorNoMatch(t *testing.T) {
	ex := NewExtractor(mustDocument(t, extractorPage))

	_, err := ex.Text("#missing")
	assertReason(t, err, ReasonNoMatch)

	if apperr.KindOf(err) != apperr.KindExtraction {
		t.Errorf("Expected extraction kind, got %s", apperr.KindOf(err))
	}
}

func TestExtractorAttribute(t *testing.T) {
	ex := NewExtractor(mustDocument(t, extractorPage))

	attr, err := ex.Attribute("#map", "onclick")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if attr != "show()" {
		t.Errorf("Expected 'show()', got '%s'", attr)
	}

	_, err = ex.Attribute("#map", "href")
	assertReason(t, err, ReasonMissingAttribute)

	var extErr *ExtractionError
	if errors.As(err, &extErr) && extErr.Detail != "href" {
		t.Errorf("Expected detail 'href', got '%s'", extErr.Detail)
	}
}

func TestExtractorNumericPrefix(t *testing.T) {
	ex := NewExtractor(mustDocument(t, extractorPage))

	tests := []struct {
		path     string
		expected float64
		reason   Reason
	}{
		{"#area", 45.5, 0},
		{"#rooms", 3, 0},
		{"#empty", 0, ReasonNumericParse},
		{"#words", 0, ReasonNumericParse},
		{"#nothing", 0, ReasonNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := ex.NumericPrefix(tt.path)
			if tt.reason != 0 {
				assertReason(t, err, tt.reason)
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if n != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, n)
			}
		})
	}
}

func TestExtractorDoesNotMutateDocument(t *testing.T) {
	doc := mustDocument(t, extractorPage)
	before, err := doc.Html()
	if err != nil {
		t.Fatal(err)
	}

	ex := NewExtractor(doc)
	_, _ = ex.Text("#title")
	_, _ = ex.NumericPrefix("#area")
	_, _ = ex.Attribute("#map", "onclick")

	after, err := doc.Html()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("Expected document to be unchanged after extraction")
	}
}

func assertReason(t *testing.T, err error, reason Reason) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected %s error, got nil", reason)
	}

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Expected *ExtractionError, got %T: %v", err, err)
	}
	if extErr.Reason != reason {
		t.Errorf("Expected reason %s, got %s", reason, extErr.Reason)
	}
}
