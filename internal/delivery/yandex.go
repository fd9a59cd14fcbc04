package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const quoteTimeout = 10 * time.Second

// Item is one parcel line of a quote request. Weight and dimensions are
// optional; an item without all three dimensions omits the size block so the
// provider's volumetric calculation is not fed zeros.
type Item struct {
	Quantity int
	Weight   decimal.NullDecimal
	Length   decimal.NullDecimal
	Width    decimal.NullDecimal
	Height   decimal.NullDecimal
}

type Config struct {
	URL       string
	APIKey    string
	OriginLat float64
	OriginLon float64
}

// Client fetches non-binding delivery price estimates from the Yandex
// check-price API. Any failure degrades to a zero price so checkout never
// blocks on a logistics outage.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: quoteTimeout},
		log:  log,
	}
}

type sizePayload struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type itemPayload struct {
	Quantity int          `json:"quantity"`
	Weight   *float64     `json:"weight,omitempty"`
	Size     *sizePayload `json:"size,omitempty"`
}

type routePoint struct {
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

type quoteRequest struct {
	Items        []itemPayload `json:"items"`
	RoutePoints  []routePoint  `json:"route_points"`
	Requirements struct {
		CargoType string `json:"cargo_type"`
		TaxiClass string `json:"taxi_class"`
	} `json:"requirements"`
}

// Quote returns the estimated delivery price for the given parcels to the
// destination coordinate, or zero on any transport or non-2xx failure.
func (c *Client) Quote(ctx context.Context, items []Item, lat, lon float64) decimal.Decimal {
	payload := quoteRequest{
		RoutePoints: []routePoint{
			{Coordinates: [2]float64{c.cfg.OriginLon, c.cfg.OriginLat}},
			{Coordinates: [2]float64{lon, lat}},
		},
	}
	payload.Requirements.CargoType = "lcv_m"
	payload.Requirements.TaxiClass = "cargo"
	for _, it := range items {
		ip := itemPayload{Quantity: it.Quantity}
		if it.Weight.Valid {
			w, _ := it.Weight.Decimal.Float64()
			ip.Weight = &w
		}
		if it.Length.Valid && it.Width.Valid && it.Height.Valid {
			l, _ := it.Length.Decimal.Float64()
			w, _ := it.Width.Decimal.Float64()
			h, _ := it.Height.Decimal.Float64()
			ip.Size = &sizePayload{Length: l, Width: w, Height: h}
		}
		payload.Items = append(payload.Items, ip)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return decimal.Zero
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return decimal.Zero
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "ru")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("delivery quote request failed", "error", err)
		return decimal.Zero
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		c.log.Warn("delivery quote degraded to zero", "status_code", resp.StatusCode)
		return decimal.Zero
	}
	var data struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		c.log.Warn("delivery quote response not parseable", "error", err)
		return decimal.Zero
	}
	return data.Price
}
