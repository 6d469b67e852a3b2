package config

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-ingest/internal/weather"
)

//go:embed sites.yaml
var defaultSites []byte

var validate = validator.New()

type AppConfig struct {
	Port string `validate:"required"`

	StoreDriver string `validate:"required,oneof=sqlite duckdb"`
	StoreDSN    string `validate:"required"`

	// FetchInterval controls how often the scheduler runs ingestion.
	// Zero disables the scheduler; the HTTP trigger still works.
	FetchInterval time.Duration `validate:"gte=0"`

	// HTTPTimeout bounds each provider call. Zero means no timeout.
	HTTPTimeout time.Duration `validate:"gte=0"`
	MaxRetries  int           `validate:"gte=0"`

	NOAABaseURL   string `validate:"required,url"`
	NOAAUserAgent string
	NWACBaseURL   string `validate:"required,url"`
	NWACToken     string

	// Telemetry window sizing.
	NWACLookback time.Duration `validate:"gt=0"`
	NWACTrailing time.Duration `validate:"gt=0"`
	NWACLead     time.Duration `validate:"gte=0"`

	Sites weather.Sites
}

// WindowPolicy returns the telemetry window settings.
func (c *AppConfig) WindowPolicy() weather.WindowPolicy {
	return weather.WindowPolicy{
		Lookback: c.NWACLookback,
		Trailing: c.NWACTrailing,
		Lead:     c.NWACLead,
	}
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.StoreDriver = getenvDefault("STORE_DRIVER", "sqlite")
	cfg.StoreDSN = getenvDefault("STORE_DSN", "weather.db")
	cfg.MaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 0)

	cfg.NOAABaseURL = getenvDefault("NOAA_BASE_URL", "https://forecast.weather.gov/MapClick.php")
	cfg.NOAAUserAgent = getenvDefault("NOAA_USER_AGENT", "weather-ingest")
	cfg.NWACBaseURL = getenvDefault("NWAC_BASE_URL", "https://api.snowobs.com/wx/v1/station/data/timeseries/")
	cfg.NWACToken = os.Getenv("NWAC_TOKEN")

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"FETCH_INTERVAL", "1h", &cfg.FetchInterval},
		{"HTTP_TIMEOUT", "0s", &cfg.HTTPTimeout},
		{"NWAC_LOOKBACK", "336h", &cfg.NWACLookback},
		{"NWAC_TRAILING", "4h", &cfg.NWACTrailing},
		{"NWAC_LEAD", "1h", &cfg.NWACLead},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	sites, err := loadSites(os.Getenv("SITES_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Sites = sites

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type siteFile struct {
	Locations []weather.Location `yaml:"locations"`
	Stations  struct {
		IDs     []int `yaml:"ids"`
		First   int   `yaml:"first"`
		Last    int   `yaml:"last"`
		Exclude []int `yaml:"exclude"`
	} `yaml:"stations"`
}

// loadSites reads the location and station table from path, or from the
// embedded defaults when path is empty.
func loadSites(path string) (weather.Sites, error) {
	data := defaultSites
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return weather.Sites{}, fmt.Errorf("read sites file: %w", err)
		}
		data = b
	}

	var f siteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return weather.Sites{}, fmt.Errorf("parse sites file: %w", err)
	}

	excluded := make(map[int]bool, len(f.Stations.Exclude))
	for _, id := range f.Stations.Exclude {
		excluded[id] = true
	}
	stations := append([]int(nil), f.Stations.IDs...)
	for id := f.Stations.First; f.Stations.First > 0 && id <= f.Stations.Last; id++ {
		stations = append(stations, id)
	}
	kept := stations[:0]
	for _, id := range stations {
		if !excluded[id] {
			kept = append(kept, id)
		}
	}

	return weather.Sites{Locations: f.Locations, Stations: kept}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
