package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/diogoX451/bazaar/pkg/types"
)

var (
	ErrPriceOutOfBounds    = errors.New("price out of bounds")
	ErrDurationOutOfBounds = errors.New("listing duration out of bounds")
	ErrTooManyListings     = errors.New("lister has reached the maximum number of listings")
	ErrInvalidListing      = errors.New("invalid listing")
)

// Policy agrupa os limites de mercado vindos da configuração
type Policy struct {
	MinPrice           float64
	MaxPrice           float64
	MinDuration        time.Duration
	MaxDuration        time.Duration
	MaxListingsPerUser int
	IncrementRate      float64
}

// ValidateListing verifica um listing novo antes de publicar.
// active é a quantidade de listings que o lister já possui.
func (p Policy) ValidateListing(l types.Listing, now time.Time, active int) error {
	if l == nil {
		return fmt.Errorf("%w: nil listing", ErrInvalidListing)
	}
	if l.GetEntry().Name == "" && l.GetEntry().Type == "" {
		return fmt.Errorf("%w: empty entry", ErrInvalidListing)
	}

	price := l.GetPrice()
	if price.Kind == types.PriceCurrency {
		if price.Amount < p.MinPrice || (p.MaxPrice > 0 && price.Amount > p.MaxPrice) {
			return fmt.Errorf("%w: %.2f not within [%.2f, %.2f]", ErrPriceOutOfBounds, price.Amount, p.MinPrice, p.MaxPrice)
		}
	}

	duration := l.GetExpiration().Sub(now)
	if duration < p.MinDuration || (p.MaxDuration > 0 && duration > p.MaxDuration) {
		return fmt.Errorf("%w: %s", ErrDurationOutOfBounds, duration.Round(time.Second))
	}

	if p.MaxListingsPerUser > 0 && active >= p.MaxListingsPerUser {
		return fmt.Errorf("%w (%d)", ErrTooManyListings, p.MaxListingsPerUser)
	}

	return nil
}
