package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"media-site-service/metrics"
	"media-site-service/models"
	"media-site-service/utils"
)

const geoFields = "status,country,countryCode,region,regionName,city,timezone,isp"

// GeoLocator resolves an IP to a location.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (models.Location, error)
}

// LocalLocation is reported for loopback, private and unknown addresses.
var LocalLocation = models.Location{City: "Local", Region: "Local", Country: "Local", Timezone: "Local"}

// UnknownLocation is reported when the lookup service has no answer.
var UnknownLocation = models.Location{City: "Unknown", Region: "Unknown", Country: "Unknown", Timezone: "Unknown"}

// ErrorLocation is recorded when the lookup itself failed.
var ErrorLocation = models.Location{City: "Error", Region: "Error", Country: "Error"}

// IPAPILocator queries an ip-api.com compatible endpoint.
type IPAPILocator struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[models.Location]
}

func NewIPAPILocator(baseURL string, timeout time.Duration) *IPAPILocator {
	return &IPAPILocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: newBreaker[models.Location]("geolocation"),
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
	ISP         string `json:"isp"`
}

// Locate short-circuits local addresses to LocalLocation. A lookup that
// completes without success yields UnknownLocation; transport and decode
// failures are returned as errors.
func (l *IPAPILocator) Locate(ctx context.Context, ip string) (models.Location, error) {
	if utils.IsLocalIP(ip) {
		return LocalLocation, nil
	}

	loc, err := l.breaker.Execute(func() (models.Location, error) {
		return l.lookup(ctx, ip)
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("geolocation").Inc()
		return models.Location{}, err
	}
	return loc, nil
}

func (l *IPAPILocator) lookup(ctx context.Context, ip string) (models.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", l.baseURL, url.PathEscape(ip), geoFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Location{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("geolocation request: unexpected status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Status != "success" {
		return UnknownLocation, nil
	}

	return models.Location{
		City:        orUnknown(body.City),
		Region:      orUnknown(body.RegionName),
		Country:     orUnknown(body.Country),
		CountryCode: orUnknown(body.CountryCode),
		Timezone:    orUnknown(body.Timezone),
		ISP:         orUnknown(body.ISP),
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
