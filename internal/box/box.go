// Package box records shipping boxes: it validates submitted forms, prices
// them against the rate table and appends them to a persistent list.
package box

import (
	"context"
	"errors"
)

var (
	// ErrSave is returned when a record could not be persisted.
	ErrSave = errors.New("failed to save box")
	// ErrRetrieve is returned when the stored list could not be read.
	ErrRetrieve = errors.New("failed to retrieve boxes")
)

// Box is one persisted shipment. The JSON names are the storage layout.
type Box struct {
	ID                 string  `json:"id"`
	ReceiverName       string  `json:"receiverName"`
	Weight             float64 `json:"weight"`
	BoxColor           string  `json:"boxColor"`
	DestinationCountry string  `json:"destinationCountry"`
	ShippingCost       float64 `json:"shippingCost"`
}

// Input is a validated submission: everything but the id and the cost.
type Input struct {
	ReceiverName       string  `json:"receiverName"`
	Weight             float64 `json:"weight"`
	BoxColor           string  `json:"boxColor"`
	DestinationCountry string  `json:"destinationCountry"`
}

// Repository is an append-only, insertion-ordered collection of boxes.
type Repository interface {
	Append(ctx context.Context, b Box) error
	ListAll(ctx context.Context) ([]Box, error)
}
