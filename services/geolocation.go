package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"urbansetu/utils"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	LocalNetwork    = "Local Network"
	UnknownLocation = "Unknown Location"
)

// Geolocator resolves an IP to "City, Country". It never fails; lookups that
// error or trip the breaker fall back to UnknownLocation.
type Geolocator struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[string]
}

type geoResponse struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country_name"`
	Error   bool   `json:"error"`
}

// NewGeolocator takes a URL template with one %s for the IP.
func NewGeolocator(endpoint string) *Geolocator {
	settings := gobreaker.Settings{
		Name:        "geolocation",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			utils.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &Geolocator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 3 * time.Second},
		breaker:  gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (g *Geolocator) Lookup(ctx context.Context, ip string) string {
	if IsLocalIP(ip) {
		return LocalNetwork
	}
	if g == nil || g.endpoint == "" {
		return UnknownLocation
	}

	loc, err := g.breaker.Execute(func() (string, error) {
		return g.fetch(ctx, ip)
	})
	if err != nil {
		utils.Debug().Err(err).Str("ip", utils.MaskIP(ip)).Msg("geolocation lookup failed")
		return UnknownLocation
	}
	return loc
}

func (g *Geolocator) fetch(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(g.endpoint, ip), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation status %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Error {
		return UnknownLocation, nil
	}

	parts := make([]string, 0, 2)
	if body.City != "" {
		parts = append(parts, body.City)
	} else if body.Region != "" {
		parts = append(parts, body.Region)
	}
	if body.Country != "" {
		parts = append(parts, body.Country)
	}
	if len(parts) == 0 {
		return UnknownLocation, nil
	}
	return strings.Join(parts, ", "), nil
}

// IsLocalIP covers loopback, private ranges and unparsable input.
func IsLocalIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}
