package services

import (
	"fmt"
	"math"

	"github.com/kiwio/print-broker-api/models"
)

// PricingInput carries everything the pricing formula depends on.
type PricingInput struct {
	VolumeCM3   float64
	Material    string
	Brand       string
	OrderType   string
	Infill      int
	LayerHeight float64
	Quantity    int
}

// PriceEstimate is the deterministic output of the pricing formula.
type PriceEstimate struct {
	EstimatedWeight float64            `json:"estimated_weight"` // grams
	EstimatedCost   float64            `json:"estimated_cost"`
	Breakdown       map[string]float64 `json:"breakdown"`
}

// Material densities in g/cm³.
var materialDensity = map[string]float64{
	"PLA":            1.24,
	"ABS":            1.04,
	"PETG":           1.27,
	"TPU":            1.21,
	"NYLON":          1.14,
	"ASA":            1.07,
	"Standard Resin": 1.10,
	"Tough Resin":    1.12,
	"Flexible Resin": 1.08,
	"Castable Resin": 1.15,
	"Dental Resin":   1.20,
}

// Material rates in currency units per gram.
var materialRate = map[string]float64{
	"PLA":            0.05,
	"ABS":            0.06,
	"PETG":           0.07,
	"TPU":            0.09,
	"NYLON":          0.11,
	"ASA":            0.08,
	"Standard Resin": 0.14,
	"Tough Resin":    0.18,
	"Flexible Resin": 0.20,
	"Castable Resin": 0.22,
	"Dental Resin":   0.25,
}

// Brand multipliers; unknown brands price at 1.0.
var brandMultiplier = map[string]float64{
	"Creality":  1.00,
	"Prusa":     1.10,
	"Bambu Lab": 1.15,
	"Anycubic":  0.95,
	"Elegoo":    0.90,
	"Formlabs":  1.30,
	"Ultimaker": 1.25,
	"Raise3D":   1.20,
}

// Per-order setup fees by technology.
var setupFee = map[string]float64{
	models.OrderTypeFDM: 5.00,
	models.OrderTypeSLA: 8.00,
}

// CalculatePrice computes the weight and cost estimate for an order. It is a
// pure function: same inputs always yield bit-identical outputs.
//
// Formula:
//
//	infillFactor = 0.25 + 0.75 * infill/100
//	weight       = volume * density * infillFactor * quantity      (grams)
//	lhFactor     = 1 + (0.2 - layerHeight), clamped to >= 0.8      (FDM)
//	             = 1.15                                            (SLA)
//	cost         = weight * rate * brandMultiplier * lhFactor + setupFee
//
// Weight and cost are rounded to 2 decimal places.
func CalculatePrice(in PricingInput) (PriceEstimate, error) {
	if in.VolumeCM3 <= 0 {
		return PriceEstimate{}, validationErr("INVALID_VOLUME", "Model volume must be positive")
	}
	if in.Quantity <= 0 {
		return PriceEstimate{}, validationErr("INVALID_QUANTITY", "Quantity must be positive")
	}
	if in.Infill < 0 || in.Infill > 100 {
		return PriceEstimate{}, validationErr("INVALID_INFILL", "Infill must be between 0 and 100")
	}

	density, ok := materialDensity[in.Material]
	if !ok {
		return PriceEstimate{}, validationErr("UNKNOWN_MATERIAL", fmt.Sprintf("Unknown material %q", in.Material))
	}
	rate := materialRate[in.Material]

	brandMult, ok := brandMultiplier[in.Brand]
	if !ok {
		brandMult = 1.0
	}

	fee, ok := setupFee[in.OrderType]
	if !ok {
		return PriceEstimate{}, validationErr("UNKNOWN_ORDER_TYPE", fmt.Sprintf("Unknown order type %q", in.OrderType))
	}

	infillFactor := 0.25 + 0.75*float64(in.Infill)/100

	var lhFactor float64
	if in.OrderType == models.OrderTypeSLA {
		lhFactor = 1.15
	} else {
		lhFactor = 1 + (0.2 - in.LayerHeight)
		if lhFactor < 0.8 {
			lhFactor = 0.8
		}
	}

	weight := round2(in.VolumeCM3 * density * infillFactor * float64(in.Quantity))
	cost := round2(weight*rate*brandMult*lhFactor + fee)

	return PriceEstimate{
		EstimatedWeight: weight,
		EstimatedCost:   cost,
		Breakdown: map[string]float64{
			"volume_cm3":       in.VolumeCM3,
			"density":          density,
			"rate_per_gram":    rate,
			"brand_multiplier": brandMult,
			"infill_factor":    infillFactor,
			"layer_factor":     lhFactor,
			"setup_fee":        fee,
			"quantity":         float64(in.Quantity),
		},
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
