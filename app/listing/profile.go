package listing

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lysyi3m/rent-comb/app/geo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout                 = 30 // seconds
	DefaultMaxFloorWithoutElevator = 2
)

// DefaultTarget is the reference point distances are measured from when the
// profile does not set one.
var DefaultTarget = geo.Coordinate{Latitude: 56.9585757, Longitude: 24.1257553}

type Profile struct {
	Name        string          // derived from filename (without extension)
	URL         string          `yaml:"url"`
	Filter      Filter          `yaml:"filter"`
	Params      SearchParams    `yaml:"params"`
	Target      *geo.Coordinate `yaml:"target"`
	Suitability Suitability     `yaml:"suitability"`
	Settings    ProfileSettings `yaml:"settings"`
	Selectors   Selectors       `yaml:"selectors"`
}

// SearchParams are the form keys the site expects for each filter value.
type SearchParams struct {
	MinPrice string `yaml:"min_price"`
	MaxPrice string `yaml:"max_price"`
	MinArea  string `yaml:"min_area"`
}

type Suitability struct {
	MaxFloorWithoutElevator *int `yaml:"max_floor_without_elevator"`
}

type ProfileSettings struct {
	Timeout      int   `yaml:"timeout"` // seconds
	PrimeSession *bool `yaml:"prime_session"`
}

type Selectors struct {
	Results     string `yaml:"results"`
	Price       string `yaml:"price"`
	Area        string `yaml:"area"`
	Rooms       string `yaml:"rooms"`
	Amenities   string `yaml:"amenities"`
	Description string `yaml:"description"`
	Floor       string `yaml:"floor"`
	Map         string `yaml:"map"`
	MapAttr     string `yaml:"map_attr"`
	City        string `yaml:"city"`
	District    string `yaml:"district"`
	Address     string `yaml:"address"`
	PostedAt    string `yaml:"posted_at"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Results:     "#filter_frm > table:nth-child(3) > tbody:nth-child(1)",
		Price:       "#tdo_8",
		Area:        "#tdo_3",
		Rooms:       "#tdo_1",
		Amenities:   "#tdo_1734",
		Description: "#msg_div_msg",
		Floor:       "#tdo_4",
		Map:         "#mnu_map",
		MapAttr:     "onclick",
		City:        "#tdo_20 > b",
		District:    "#tdo_856 > b",
		Address:     "#tdo_11 > b",
		PostedAt:    "td.msg_footer:nth-child(2)",
	}
}

func (p *Profile) TargetCoordinate() geo.Coordinate {
	if p.Target == nil {
		return DefaultTarget
	}
	return *p.Target
}

func (p *Profile) FloorThreshold() int {
	if p.Suitability.MaxFloorWithoutElevator == nil {
		return DefaultMaxFloorWithoutElevator
	}
	return *p.Suitability.MaxFloorWithoutElevator
}

func (p *Profile) Timeout() time.Duration {
	return time.Duration(p.Settings.Timeout) * time.Second
}

func (p *Profile) PrimeSession() bool {
	return p.Settings.PrimeSession == nil || *p.Settings.PrimeSession
}

// LoadProfile reads a YAML search profile, applies defaults and validates it.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	profile.Name = strings.TrimSuffix(base, filepath.Ext(base))

	applyDefaults(&profile)

	if err := validateProfile(&profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	slog.Debug("Profile loaded", "profile", profile.Name, "url", profile.URL,
		"min_price", profile.Filter.MinPrice, "max_price", profile.Filter.MaxPrice, "min_area", profile.Filter.MinArea)

	return &profile, nil
}

func applyDefaults(p *Profile) {
	if p.Params.MinPrice == "" {
		p.Params.MinPrice = "topt[8][min]"
	}
	if p.Params.MaxPrice == "" {
		p.Params.MaxPrice = "topt[8][max]"
	}
	if p.Params.MinArea == "" {
		p.Params.MinArea = "topt[3][min]"
	}
	if p.Settings.Timeout == 0 {
		p.Settings.Timeout = DefaultTimeout
	}

	defaults := DefaultSelectors()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&p.Selectors.Results, defaults.Results)
	fill(&p.Selectors.Price, defaults.Price)
	fill(&p.Selectors.Area, defaults.Area)
	fill(&p.Selectors.Rooms, defaults.Rooms)
	fill(&p.Selectors.Amenities, defaults.Amenities)
	fill(&p.Selectors.Description, defaults.Description)
	fill(&p.Selectors.Floor, defaults.Floor)
	fill(&p.Selectors.Map, defaults.Map)
	fill(&p.Selectors.MapAttr, defaults.MapAttr)
	fill(&p.Selectors.City, defaults.City)
	fill(&p.Selectors.District, defaults.District)
	fill(&p.Selectors.Address, defaults.Address)
	fill(&p.Selectors.PostedAt, defaults.PostedAt)
}

func validateProfile(p *Profile) error {
	if p.URL == "" {
		return fmt.Errorf("search URL is required")
	}

	u, err := url.Parse(p.URL)
	if err != nil {
		return fmt.Errorf("invalid search URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("search URL must be absolute: %s", p.URL)
	}

	nonNegativeFields := map[string]int{
		"min price": p.Filter.MinPrice,
		"max price": p.Filter.MaxPrice,
		"min area":  p.Filter.MinArea,
		"timeout":   p.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if p.Filter.MaxPrice > 0 && p.Filter.MaxPrice < p.Filter.MinPrice {
		return fmt.Errorf("max price %d is below min price %d", p.Filter.MaxPrice, p.Filter.MinPrice)
	}

	if t := p.Target; t != nil {
		if t.Latitude < -90 || t.Latitude > 90 || t.Longitude < -180 || t.Longitude > 180 {
			return fmt.Errorf("target coordinate out of range: %v", *t)
		}
	}

	return nil
}
