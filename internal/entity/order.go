package entity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusCancelled Status = "cancelled"
	StatusPaid      Status = "paid"
	StatusError     Status = "error"
)

// legacy stored value from the pre-migration schema; parses to StatusPaid.
const legacyStatusSuccess = "success"

var ErrValidation = errors.New("validation failed")

// ParseStatus maps a stored or inbound status string to the current enum.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusCreated), string(StatusCancelled), string(StatusPaid), string(StatusError):
		return Status(s), nil
	case legacyStatusSuccess:
		return StatusPaid, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Terminal reports whether no further provider-driven transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusError, StatusCancelled:
		return true
	}
	return false
}

// CanTransition is the single transition table consulted by both the
// administrative update path and the webhook reconciler.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return false
	}
	return !s.Terminal()
}

type Order struct {
	ID          string
	Status      Status
	Amount      decimal.Decimal
	AmountPaid  decimal.NullDecimal
	ExternalID  string // provider-assigned, set at most once
	PaymentData []byte // opaque provider blob, JSON
	Detail      *OrderDetail
	Links       []OrderProductLink
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderDetail struct {
	ID            string
	OrderID       string
	Email         string
	Phone         string
	FirstName     string
	Address       string
	Latitude      string
	Longitude     string
	DeliveryPrice decimal.Decimal
	Comment       string
}

// Coordinates parses the optional latitude/longitude pair. ok is false when
// the pair is absent or malformed; Validate rejects malformed pairs upfront.
func (d *OrderDetail) Coordinates() (lat, lon float64, ok bool) {
	if d.Latitude == "" || d.Longitude == "" {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(d.Latitude, 64)
	lon, err2 := strconv.ParseFloat(d.Longitude, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func (d *OrderDetail) Validate() error {
	if d.Email == "" && d.Phone == "" {
		return fmt.Errorf("%w: either email or phone must be provided", ErrValidation)
	}
	if (d.Latitude == "") != (d.Longitude == "") {
		return fmt.Errorf("%w: latitude and longitude must be provided together", ErrValidation)
	}
	if d.Latitude == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(d.Latitude, 64)
	if err != nil {
		return fmt.Errorf("%w: latitude must be a valid float number", ErrValidation)
	}
	lon, err := strconv.ParseFloat(d.Longitude, 64)
	if err != nil {
		return fmt.Errorf("%w: longitude must be a valid float number", ErrValidation)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrValidation, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrValidation, lon)
	}
	return nil
}

// OrderProductLink joins an order to a product. The product side is a weak
// reference: deleting a product leaves the link row in place.
type OrderProductLink struct {
	OrderID   string
	ProductID string
	Quantity  int
}

func (l OrderProductLink) Validate() error {
	if l.ProductID == "" {
		return fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	return nil
}
