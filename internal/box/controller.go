package box

import (
	"context"

	"github.com/google/uuid"

	"shippingbox/internal/rate"
)

// IDFunc produces identifiers for new records.
type IDFunc func() (string, error)

// NewID returns a UUIDv7: a millisecond timestamp followed by random bits.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Controller turns validated input into priced, identified records.
type Controller struct {
	repo  Repository
	est   rate.Estimator
	newID IDFunc
}

func NewController(repo Repository, est rate.Estimator) *Controller {
	if est == nil {
		est = rate.NewTable()
	}
	return &Controller{repo: repo, est: est, newID: NewID}
}

// WithIDFunc replaces the identifier source.
func (c *Controller) WithIDFunc(fn IDFunc) *Controller {
	c.newID = fn
	return c
}

// CalculateShippingCost returns weight × rate(country).
func (c *Controller) CalculateShippingCost(weight float64, country string) (float64, error) {
	return c.est.Estimate(country, weight)
}

// SaveBox prices and persists in. It does not validate the input; an
// unsupported country fails with rate.ErrUnknownCountry.
func (c *Controller) SaveBox(ctx context.Context, in Input) (Box, error) {
	cost, err := c.CalculateShippingCost(in.Weight, in.DestinationCountry)
	if err != nil {
		return Box{}, err
	}
	id, err := c.newID()
	if err != nil {
		return Box{}, err
	}
	b := Box{
		ID:                 id,
		ReceiverName:       in.ReceiverName,
		Weight:             in.Weight,
		BoxColor:           in.BoxColor,
		DestinationCountry: in.DestinationCountry,
		ShippingCost:       cost,
	}
	if err := c.repo.Append(ctx, b); err != nil {
		return Box{}, err
	}
	return b, nil
}

func (c *Controller) GetAllBoxes(ctx context.Context) ([]Box, error) {
	return c.repo.ListAll(ctx)
}

// GetBoxByID returns the first record with id. A missing id is not an error.
func (c *Controller) GetBoxByID(ctx context.Context, id string) (Box, bool, error) {
	boxes, err := c.GetAllBoxes(ctx)
	if err != nil {
		return Box{}, false, err
	}
	for _, b := range boxes {
		if b.ID == id {
			return b, true, nil
		}
	}
	return Box{}, false, nil
}
