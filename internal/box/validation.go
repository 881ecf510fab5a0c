package box

import (
	"math"
	"strconv"
	"strings"

	"shippingbox/internal/color"
	"shippingbox/internal/rate"
)

// Field names shared by form inputs, JSON bodies and error maps.
const (
	FieldReceiverName       = "receiverName"
	FieldWeight             = "weight"
	FieldBoxColor           = "boxColor"
	FieldDestinationCountry = "destinationCountry"
)

// DefaultColor is what the colour picker starts at.
const DefaultColor = "#ffffff"

// NegativeWeightNotice is shown when a negative weight is replaced by zero.
const NegativeWeightNotice = "Negative values are not permitted. Defaulting to zero."

// Form is a submission as typed: every field is raw text.
type Form struct {
	ReceiverName       string `json:"receiverName"`
	Weight             string `json:"weight"`
	BoxColor           string `json:"boxColor"`
	DestinationCountry string `json:"destinationCountry"`
}

// FieldErrors maps a field name to a message for the user.
type FieldErrors map[string]string

// Validation is the outcome of checking a Form.
type Validation struct {
	Input   Input
	Errors  FieldErrors
	Notices FieldErrors
}

// OK reports whether a record may be created.
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Validate checks every field and reports all failures together. A negative
// weight is not a failure: it is clamped to zero and reported as a notice.
func Validate(f Form) Validation {
	v := Validation{Errors: FieldErrors{}, Notices: FieldErrors{}}

	name := strings.TrimSpace(f.ReceiverName)
	if name == "" {
		v.Errors[FieldReceiverName] = "Receiver name is required"
	}

	var weight float64
	switch w := strings.TrimSpace(f.Weight); {
	case w == "":
		v.Errors[FieldWeight] = "Weight is required"
	default:
		n, err := strconv.ParseFloat(w, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			v.Errors[FieldWeight] = "Weight must be a number"
			break
		}
		if n < 0 {
			n = 0
			v.Notices[FieldWeight] = NegativeWeightNotice
		}
		// "-0" parses as negative zero.
		weight = math.Abs(n)
	}

	hex := strings.TrimSpace(f.BoxColor)
	if hex == "" {
		hex = DefaultColor
	}
	rgb, err := color.HexToRGB(hex)
	if err != nil {
		v.Errors[FieldBoxColor] = "Box colour must be a hex colour like #ff0000"
	}

	country := strings.TrimSpace(f.DestinationCountry)
	if country == "" {
		v.Errors[FieldDestinationCountry] = "Destination country is required"
	} else if _, ok := rate.Lookup(country); !ok {
		v.Errors[FieldDestinationCountry] = "Destination country is not supported"
	} else if _, bad := v.Errors[FieldWeight]; !bad && !rate.Fits(country, weight) {
		v.Errors[FieldWeight] = "Weight is too large"
	}

	v.Input = Input{
		ReceiverName:       name,
		Weight:             weight,
		BoxColor:           rgb,
		DestinationCountry: country,
	}
	return v
}
