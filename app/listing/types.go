package listing

import (
	"math"
	"time"

	"github.com/lysyi3m/rent-comb/app/geo"
)

// Description holds independent signals found in the free-text body.
type Description struct {
	HasParkingMention  bool `json:"has_parking_mention"`
	HasElevatorMention bool `json:"has_elevator_mention"`
	HasBalconyMention  bool `json:"has_balcony_mention"`
}

type Listing struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Price    string    `json:"price"` // display text, currency formatting varies
	PostedAt time.Time `json:"posted_at"`

	City     string `json:"city"`
	District string `json:"district"`
	Address  string `json:"address"`

	Rooms uint    `json:"rooms"`
	Area  float64 `json:"area"` // m²
	Floor *int    `json:"floor,omitempty"`

	HasElevator bool `json:"has_elevator"` // from the floor field annotation
	HasParking  bool `json:"has_parking"`  // from the amenities field only

	Location           *geo.Coordinate `json:"location,omitempty"`
	DistanceFromTarget *int            `json:"distance_from_target,omitempty"` // meters
	Description        *Description    `json:"description,omitempty"`
}

// New returns a listing with its mandatory fields set. Everything else
// defaults to the zero value until the parser fills it in.
func New(id, url string, postedAt time.Time) *Listing {
	return &Listing{
		ID:       id,
		URL:      url,
		PostedAt: postedAt,
	}
}

// SetLocation records the coordinate and the rounded distance to target.
// Location and distance are always set or cleared together.
func (l *Listing) SetLocation(loc *geo.Coordinate, target geo.Coordinate) {
	if loc == nil {
		l.Location = nil
		l.DistanceFromTarget = nil
		return
	}

	c := *loc
	d := int(math.Round(geo.Distance(c, target)))
	l.Location = &c
	l.DistanceFromTarget = &d
}

// ElevatorSignal reports whether either the floor field or the description
// mentions an elevator.
func (l *Listing) ElevatorSignal() bool {
	return l.HasElevator || (l.Description != nil && l.Description.HasElevatorMention)
}

// ParkingSignal combines the structured amenities value with the description.
func (l *Listing) ParkingSignal() bool {
	return l.HasParking || (l.Description != nil && l.Description.HasParkingMention)
}

func (l *Listing) BalconySignal() bool {
	return l.Description != nil && l.Description.HasBalconyMention
}

// Link is one discovered search result row.
type Link struct {
	ID   string
	Href string
}

// Filter holds the numeric search criteria merged into the search request.
type Filter struct {
	MinPrice int `yaml:"min_price" json:"min_price"`
	MaxPrice int `yaml:"max_price" json:"max_price"`
	MinArea  int `yaml:"min_area" json:"min_area"`
}
