package listing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfileValid(t *testing.T) {
	content := `
url: "https://www.ss.lv/lv/real-estate/flats/riga/all/hand_over/"

filter:
  min_price: 300
  max_price: 600
  min_area: 40

target:
  latitude: 56.95
  longitude: 24.10

suitability:
  max_floor_without_elevator: 3

settings:
  timeout: 15
  prime_session: false

selectors:
  price: "#custom_price"
`
	profile, err := LoadProfile(writeProfile(t, "riga.yml", content))
	if err != nil {
		t.Fatal(err)
	}

	if profile.Name != "riga" {
		t.Errorf("Expected name 'riga', got '%s'", profile.Name)
	}
	if profile.Filter.MinPrice != 300 || profile.Filter.MaxPrice != 600 || profile.Filter.MinArea != 40 {
		t.Errorf("Unexpected filter: %+v", profile.Filter)
	}
	if profile.TargetCoordinate().Latitude != 56.95 {
		t.Errorf("Expected target latitude 56.95, got %v", profile.TargetCoordinate().Latitude)
	}
	if profile.FloorThreshold() != 3 {
		t.Errorf("Expected floor threshold 3, got %d", profile.FloorThreshold())
	}
	if profile.Timeout() != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %v", profile.Timeout())
	}
	if profile.PrimeSession() {
		t.Errorf("Expected prime_session false")
	}
	if profile.Selectors.Price != "#custom_price" {
		t.Errorf("Expected overridden price selector, got '%s'", profile.Selectors.Price)
	}
	if profile.Selectors.Area != "#tdo_3" {
		t.Errorf("Expected default area selector, got '%s'", profile.Selectors.Area)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	content := `url: "https://www.ss.lv/lv/real-estate/flats/riga/all/hand_over/"`

	profile, err := LoadProfile(writeProfile(t, "minimal.yaml", content))
	if err != nil {
		t.Fatal(err)
	}

	if profile.Name != "minimal" {
		t.Errorf("Expected name 'minimal', got '%s'", profile.Name)
	}
	if profile.Params.MinPrice != "topt[8][min]" || profile.Params.MaxPrice != "topt[8][max]" || profile.Params.MinArea != "topt[3][min]" {
		t.Errorf("Unexpected default params: %+v", profile.Params)
	}
	if profile.Timeout() != DefaultTimeout*time.Second {
		t.Errorf("Expected default timeout, got %v", profile.Timeout())
	}
	if profile.FloorThreshold() != DefaultMaxFloorWithoutElevator {
		t.Errorf("Expected default floor threshold, got %d", profile.FloorThreshold())
	}
	if profile.TargetCoordinate() != DefaultTarget {
		t.Errorf("Expected default target, got %v", profile.TargetCoordinate())
	}
	if !profile.PrimeSession() {
		t.Errorf("Expected prime_session to default to true")
	}
	if profile.Selectors != DefaultSelectors() {
		t.Errorf("Expected default selectors, got %+v", profile.Selectors)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"missing url", `filter: {min_price: 100}`, "search URL is required"},
		{"relative url", `url: "/lv/real-estate/"`, "must be absolute"},
		{"negative price", "url: \"https://www.ss.lv/\"\nfilter: {min_price: -1}", "min price must be non-negative"},
		{"inverted range", "url: \"https://www.ss.lv/\"\nfilter: {min_price: 500, max_price: 400}", "below min price"},
		{"target out of range", "url: \"https://www.ss.lv/\"\ntarget: {latitude: 91, longitude: 0}", "out of range"},
		{"bad yaml", "url: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, "bad.yml", tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error containing '%s', got: %v", tt.contains, err)
			}
		})
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Errorf("Expected read error, got: %v", err)
	}
}
