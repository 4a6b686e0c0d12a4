package greeks

import (
	"fmt"
	"math"
	"strings"
)

// OptionType follows the venue's contract suffixes: CE = call, PE = put.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

const (
	ivInitialGuess = 0.30
	ivFloor        = 0.01
	ivTolerance    = 1e-6
	ivMaxIter      = 100
	vegaFloor      = 1e-12
	minYearFrac    = 1e-3
)

// Input holds the market quote to valuate. Spot, strike, and premium must
// be strictly positive; days to expiry must be non-negative.
type Input struct {
	Spot         float64
	Strike       float64
	DaysToExpiry int
	Premium      float64
	OptionType   OptionType
	RiskFreeRate float64
}

// Result carries implied volatility and the Black-Scholes Greeks at the
// converged volatility. Theta is per calendar day, vega per 1% IV move.
type Result struct {
	IV    float64 `json:"iv"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// DomainError marks invalid valuation inputs. The scheduler treats it as
// data-unavailable and moves to the next iteration.
type DomainError struct {
	Field  string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("greeks: invalid %s: %s", e.Field, e.Reason)
}

// Valuate solves for implied volatility via Newton-Raphson on the
// Black-Scholes price and evaluates the Greeks at the converged sigma.
func Valuate(in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	isCall := in.OptionType.isCall()
	T := math.Max(float64(in.DaysToExpiry)/365.0, minYearFrac)
	r := in.RiskFreeRate

	iv := impliedVolatility(in.Spot, in.Strike, T, r, in.Premium, isCall)

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(in.Spot/in.Strike) + (r+0.5*iv*iv)*T) / (iv * sqrtT)
	d2 := d1 - iv*sqrtT

	var delta float64
	if isCall {
		delta = normCDF(d1)
	} else {
		delta = normCDF(d1) - 1
	}
	gamma := normPDF(d1) / (in.Spot * iv * sqrtT)
	vega := in.Spot * normPDF(d1) * sqrtT / 100

	decay := -(in.Spot * normPDF(d1) * iv) / (2 * sqrtT)
	carry := r * in.Strike * math.Exp(-r*T)
	var theta float64
	if isCall {
		theta = (decay - carry*normCDF(d2)) / 365
	} else {
		theta = (decay + carry*normCDF(-d2)) / 365
	}

	return Result{IV: iv, Delta: delta, Gamma: gamma, Theta: theta, Vega: vega}, nil
}

func (in Input) validate() error {
	if in.Spot <= 0 {
		return &DomainError{Field: "spot", Reason: "must be positive"}
	}
	if in.Strike <= 0 {
		return &DomainError{Field: "strike", Reason: "must be positive"}
	}
	if in.Premium <= 0 {
		return &DomainError{Field: "premium", Reason: "must be positive"}
	}
	if in.DaysToExpiry < 0 {
		return &DomainError{Field: "days_to_expiry", Reason: "must be non-negative"}
	}
	switch in.OptionType.normalize() {
	case Call, Put:
	default:
		return &DomainError{Field: "option_type", Reason: "must be CE or PE"}
	}
	return nil
}

func (t OptionType) normalize() OptionType {
	return OptionType(strings.ToUpper(strings.TrimSpace(string(t))))
}

func (t OptionType) isCall() bool { return t.normalize() == Call }

// impliedVolatility runs Newton-Raphson from sigma = 0.30. Iteration stops
// on a sub-tolerance price residual, on the iteration cap, or early when
// vega underflows (deep ITM/OTM), whichever comes first. The result is
// floored at 0.01 so downstream divisions stay finite.
func impliedVolatility(s, k, T, r, marketPrice float64, isCall bool) float64 {
	sigma := ivInitialGuess
	sqrtT := math.Sqrt(T)
	for i := 0; i < ivMaxIter; i++ {
		if sigma <= 0 {
			break
		}
		d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
		d2 := d1 - sigma*sqrtT

		var price float64
		if isCall {
			price = s*normCDF(d1) - k*math.Exp(-r*T)*normCDF(d2)
		} else {
			price = k*math.Exp(-r*T)*normCDF(-d2) - s*normCDF(-d1)
		}

		vega := s * normPDF(d1) * sqrtT
		if vega < vegaFloor {
			break
		}
		sigma -= (price - marketPrice) / vega
		if math.Abs(price-marketPrice) < ivTolerance {
			break
		}
	}
	return math.Max(sigma, ivFloor)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
