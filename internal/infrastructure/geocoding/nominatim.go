package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/user"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NominatimGeocoder resolves postal addresses through the OpenStreetMap
// Nominatim search API. The service requires an identifying User-Agent.
type NominatimGeocoder struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

func NewNominatimGeocoder(cfg Config, log *logger.Logger) *NominatimGeocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &NominatimGeocoder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns (nil, nil) when the address yields no match; callers
// treat a missing location as acceptable.
func (g *NominatimGeocoder) Geocode(ctx context.Context, addr user.Address) (*ports.Coordinates, error) {
	query := strings.TrimSpace(strings.Join([]string{addr.Street, addr.PostalCode, addr.City, addr.Country}, " "))
	if query == "" {
		return nil, nil
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding request returned %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		g.log.Debug("No geocoding match", "query", query)
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocoding response: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocoding response: %w", err)
	}

	return &ports.Coordinates{Latitude: lat, Longitude: lng}, nil
}
