package listing

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/rent-comb/app/geo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const PostedAtLayout = "02.01.2006 15:04"

var (
	amenityParkingRe = regexp.MustCompile(`парков|parking|stāvviet`)
	floorElevatorRe  = regexp.MustCompile(`лифт|lift`)
	descParkingRe    = regexp.MustCompile(`(?:^|\s)(?:парк|park|stāvviet)`)
	descElevatorRe   = regexp.MustCompile(`(?:^|\s)(?:лифт|lift|elevator)`)
	descBalconyRe    = regexp.MustCompile(`(?:^|\s)(?:балкон|терасс|balcony|balkon|terrace|teras)`)
	coordinatesRe    = regexp.MustCompile(`&c=(-?\d+\.\d+),\s?(-?\d+\.\d+)`)
	postedAtRe       = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4} \d{2}:\d{2})`)
)

// Parser turns a detail page into a Listing. Only the posting date is
// mandatory; every other field degrades to its zero value or nil.
type Parser struct {
	selectors Selectors
	target    geo.Coordinate
}

func NewParser(profile *Profile) *Parser {
	return &Parser{
		selectors: profile.Selectors,
		target:    profile.TargetCoordinate(),
	}
}

func (p *Parser) Parse(pageURL, id string, doc *goquery.Document) (*Listing, error) {
	ex := NewExtractor(doc)

	postedAt, err := p.parsePostedAt(ex)
	if err != nil {
		return nil, err
	}

	l := New(id, pageURL, postedAt)

	l.City = p.textOrEmpty(ex, id, p.selectors.City)
	l.District = p.textOrEmpty(ex, id, p.selectors.District)
	l.Address = p.textOrEmpty(ex, id, p.selectors.Address)
	l.Price = p.textOrEmpty(ex, id, p.selectors.Price)

	if area, err := ex.NumericPrefix(p.selectors.Area); err == nil {
		l.Area = area
	} else {
		slog.Debug("Field defaulted", "id", id, "field", "area", "error", err)
	}

	if rooms, err := ex.NumericPrefix(p.selectors.Rooms); err == nil && rooms > 0 {
		l.Rooms = uint(rooms)
	} else if err != nil {
		slog.Debug("Field defaulted", "id", id, "field", "rooms", "error", err)
	}

	if amenities, err := ex.Text(p.selectors.Amenities); err == nil {
		l.HasParking = amenityParkingRe.MatchString(lower(amenities))
	}

	if floor, elevator, ok := p.parseFloor(ex); ok {
		l.Floor = &floor
		l.HasElevator = elevator
	}

	if body, err := ex.Text(p.selectors.Description); err == nil {
		l.Description = ScanDescription(body)
	}

	l.SetLocation(p.parseLocation(ex), p.target)

	return l, nil
}

// ScanDescription looks for parking, elevator and balcony terms in free text.
func ScanDescription(body string) *Description {
	text := lower(body)
	return &Description{
		HasParkingMention:  descParkingRe.MatchString(text),
		HasElevatorMention: descElevatorRe.MatchString(text),
		HasBalconyMention:  descBalconyRe.MatchString(text),
	}
}

func (p *Parser) parsePostedAt(ex *Extractor) (time.Time, error) {
	path := p.selectors.PostedAt

	footer, err := ex.Text(path)
	if err != nil {
		return time.Time{}, err
	}

	match := postedAtRe.FindStringSubmatch(footer)
	if match == nil {
		return time.Time{}, &ExtractionError{Reason: ReasonPattern, Path: path, Detail: footer}
	}

	// Site-local wall clock; no zone is published alongside it.
	postedAt, err := time.Parse(PostedAtLayout, match[1])
	if err != nil {
		return time.Time{}, &ExtractionError{Reason: ReasonDateParse, Path: path, Detail: match[1], Err: err}
	}

	return postedAt, nil
}

func (p *Parser) parseFloor(ex *Extractor) (int, bool, bool) {
	text, err := ex.Text(p.selectors.Floor)
	if err != nil {
		return 0, false, false
	}

	text = lower(text)
	first, _, _ := strings.Cut(text, "/")
	floor, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, false, false
	}

	return floor, floorElevatorRe.MatchString(text), true
}

func (p *Parser) parseLocation(ex *Extractor) *geo.Coordinate {
	attr, err := ex.Attribute(p.selectors.Map, p.selectors.MapAttr)
	if err != nil {
		return nil
	}

	match := coordinatesRe.FindStringSubmatch(lower(attr))
	if match == nil {
		return nil
	}

	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return nil
	}

	return &geo.Coordinate{Latitude: lat, Longitude: lon}
}

func (p *Parser) textOrEmpty(ex *Extractor, id, path string) string {
	text, err := ex.Text(path)
	if err != nil {
		slog.Debug("Field defaulted", "id", id, "path", path, "error", err)
		return ""
	}
	return text
}

// lower folds case for both Cyrillic and Latvian text. A Caser is not safe
// for concurrent use, so one is built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
