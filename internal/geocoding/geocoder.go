package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const cacheFileName = "geocode_cache.json"

type Geocoder struct {
	logger      *logrus.Logger
	baseURL     string
	countryCode string
	cacheDir    string
	cache       map[string][]float64
	cacheLock   sync.RWMutex
	client      *http.Client
	minInterval time.Duration
	rateLock    sync.Mutex
	lastRequest time.Time
}

// NewGeocoder creates a Nominatim-compatible geocoder. An empty cacheDir keeps the cache in memory only.
func NewGeocoder(logger *logrus.Logger, baseURL, countryCode, cacheDir string) *Geocoder {
	g := &Geocoder{
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		countryCode: countryCode,
		cacheDir:    cacheDir,
		cache:       make(map[string][]float64),
		client:      &http.Client{Timeout: 10 * time.Second},
		// Nominatim's usage policy allows one request per second
		minInterval: time.Second,
	}

	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) loadCache() {
	cacheFile := filepath.Join(g.cacheDir, cacheFileName)
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		g.logger.Warnf("Could not load geocode cache: %v", err)
		return
	}

	err = json.Unmarshal(data, &g.cache)
	if err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cacheDir == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	cacheFile := filepath.Join(g.cacheDir, cacheFileName)
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
		return
	}

	g.logger.Debug("Saved geocode cache to disk")
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress resolves an address to latitude and longitude
func (g *Geocoder) GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error) {
	cacheKey := fmt.Sprintf("%s|%s|%s", street, postalCode, city)
	fullAddress := strings.Join(nonEmpty(street, postalCode, city), ", ")
	if fullAddress == "" {
		return 0, 0, fmt.Errorf("address is empty")
	}

	// Check cache first
	g.cacheLock.RLock()
	if coords, ok := g.cache[cacheKey]; ok {
		g.cacheLock.RUnlock()
		if len(coords) == 2 {
			g.logger.WithFields(logrus.Fields{
				"address":   fullAddress,
				"latitude":  coords[0],
				"longitude": coords[1],
				"source":    "cache",
			}).Debug("Found coordinates in cache")
			return coords[0], coords[1], nil
		}
		return 0, 0, fmt.Errorf("invalid cached coordinates")
	}
	g.cacheLock.RUnlock()

	if err := g.throttle(ctx); err != nil {
		return 0, 0, err
	}

	// Build the query
	params := url.Values{
		"q":      []string{fullAddress},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	if g.countryCode != "" {
		params.Set("countrycodes", g.countryCode)
	}

	// Make the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %v", err)
	}

	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "Inspectra Property Risk/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to read response")
		return 0, 0, fmt.Errorf("failed to read response: %v", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to parse response")
		return 0, 0, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(result) == 0 {
		g.logger.WithField("address", fullAddress).Warn("No results found")
		return 0, 0, fmt.Errorf("no results found for address: %s", fullAddress)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %v", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %v", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   fullAddress,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	// Cache the result
	g.cacheLock.Lock()
	g.cache[cacheKey] = []float64{lat, lon}
	g.cacheLock.Unlock()

	g.saveCache()

	return lat, lon, nil
}

// throttle spaces requests by minInterval
func (g *Geocoder) throttle(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	wait := g.minInterval - time.Since(g.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.lastRequest = time.Now()
	return nil
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
