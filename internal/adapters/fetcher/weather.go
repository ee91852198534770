package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/pkg/logger"
)

// CurrentWeather is the current_weather object of an Open-Meteo forecast.
type CurrentWeather struct {
	Temperature   *float64 `json:"temperature"`
	WindSpeed     float64  `json:"windspeed"`
	WindDirection float64  `json:"winddirection"`
	WeatherCode   int      `json:"weathercode"`
	IsDay         int      `json:"is_day"`
	Time          string   `json:"time"`
}

// Forecast is the subset of the forecast response the oracle reads.
// Other fields are ignored.
type Forecast struct {
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Elevation      float64         `json:"elevation"`
	Timezone       string          `json:"timezone"`
	CurrentWeather *CurrentWeather `json:"current_weather"`
}

// PublicIP returns this node's public address as seen by the echo endpoint.
func (c *Client) PublicIP(ctx context.Context) (string, error) {
	body, err := c.get(ctx, EndpointIPEcho, c.ipEchoURL)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: ip echo returned %q", ErrFetch, ip)
	}
	c.log.Info(ctx, "public ip resolved", logger.String("ip", ip))
	return ip, nil
}

// LatLong geolocates ip. The endpoint answers with "lat,long".
func (c *Client) LatLong(ctx context.Context, ip string) (geo.Coordinates, error) {
	u := strings.ReplaceAll(c.geolocationURL, "{ip}", url.PathEscape(ip))
	body, err := c.get(ctx, EndpointGeolocation, u)
	if err != nil {
		return geo.Coordinates{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(string(body)), ",", 2)
	lat := strings.TrimSpace(parts[0])
	if lat == "" {
		return geo.Coordinates{}, fmt.Errorf("%w: %w", ErrFetch, ErrMissingLat)
	}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return geo.Coordinates{}, fmt.Errorf("%w: %w", ErrFetch, ErrMissingLong)
	}
	coords := geo.Coordinates{Lat: lat, Long: strings.TrimSpace(parts[1])}

	c.log.Info(ctx, "geolocation resolved",
		logger.String("ip", ip),
		logger.String("lat", coords.Lat),
		logger.String("long", coords.Long))
	return coords, nil
}

// Forecast fetches the current weather at lat/long.
func (c *Client) Forecast(ctx context.Context, lat, long string) (*Forecast, error) {
	u, err := url.Parse(c.weatherURL)
	if err != nil {
		return nil, fmt.Errorf("%w: weather url: %w", ErrFetch, err)
	}
	q := u.Query()
	q.Set("latitude", lat)
	q.Set("longitude", long)
	q.Set("current_weather", "true")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, EndpointWeather, u.String())
	if err != nil {
		return nil, err
	}

	var f Forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("%w: decoding forecast: %w", ErrFetch, err)
	}
	if f.CurrentWeather == nil || f.CurrentWeather.Temperature == nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, ErrMissingCurrent)
	}

	cw := f.CurrentWeather
	c.log.Info(ctx, "weather fetched",
		logger.String("lat", lat),
		logger.String("long", long),
		logger.Float64("temperature", *cw.Temperature),
		logger.Float64("windspeed", cw.WindSpeed),
		logger.Float64("winddirection", cw.WindDirection),
		logger.Int("weathercode", cw.WeatherCode),
		logger.Int("is_day", cw.IsDay),
		logger.String("time", cw.Time))
	return &f, nil
}

// FetchWeather fetches and quantizes the temperature at lat/long.
func (c *Client) FetchWeather(ctx context.Context, lat, long string) (fixedpoint.Permill, error) {
	f, err := c.Forecast(ctx, lat, long)
	if err != nil {
		return fixedpoint.Zero, err
	}
	p, err := fixedpoint.Quantize(*f.CurrentWeather.Temperature)
	if err != nil {
		return fixedpoint.Zero, fmt.Errorf("failed to create fixed-point temperature: %w", err)
	}
	return p, nil
}

// FetchLocalWeather geolocates this node and fetches the temperature there.
func (c *Client) FetchLocalWeather(ctx context.Context) (fixedpoint.Permill, error) {
	ip, err := c.PublicIP(ctx)
	if err != nil {
		return fixedpoint.Zero, err
	}
	coords, err := c.LatLong(ctx, ip)
	if err != nil {
		return fixedpoint.Zero, err
	}
	return c.FetchWeather(ctx, coords.Lat, coords.Long)
}
