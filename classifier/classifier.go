// Package classifier decides what was purchased from ambiguous payment
// attributes. Strategies run in a fixed priority order and the classifier is
// a total function: it always returns a structurally valid detection, never
// an error.
package classifier

import (
	"fmt"

	"github.com/goliatone/go-payments/core"
)

type Method string

const (
	MethodMetadata          Method = "metadata"
	MethodAmountTier        Method = "amount_tier"
	MethodNotes             Method = "notes"
	MethodCustomerHeuristic Method = "customer_heuristic"
	MethodFallback          Method = "fallback"
)

// Detection is the uniform result every strategy produces. Flags are always
// recomputed from Products at the aggregation point, never carried forward,
// so flag/product drift cannot happen.
type Detection struct {
	Products   []string
	Flags      map[string]bool
	Confidence float64
	Method     Method
	Amount     int64
}

// Strategy inspects payment attributes and reports whether it produced a
// detection. Strategies are pure functions so each is independently testable.
type Strategy func(payment core.PaymentAttributes) (Detection, bool)

const defaultShortCircuitConfidence = 0.9

type Classifier struct {
	Strategies []Strategy
	// ShortCircuit stops the chain as soon as a strategy reaches this
	// confidence. Zero means the default of 0.9.
	ShortCircuit float64
}

func New() *Classifier {
	return &Classifier{
		Strategies: []Strategy{
			MetadataStrategy,
			AmountTierStrategy,
			NotesStrategy,
			CustomerHeuristicStrategy,
			FallbackStrategy,
		},
	}
}

// Classify runs the strategy chain and returns the highest-confidence valid
// detection, short-circuiting once a strategy is confident enough. If every
// strategy fails structural validation the fallback output is substituted,
// so the caller always receives a usable result.
func (c *Classifier) Classify(payment core.PaymentAttributes) Detection {
	strategies := c.strategies()
	threshold := c.shortCircuit()

	var best Detection
	var found bool
	for _, strategy := range strategies {
		if strategy == nil {
			continue
		}
		candidate, ok := strategy(payment)
		if !ok {
			continue
		}
		if err := validateDetection(candidate); err != nil {
			continue
		}
		if !found || candidate.Confidence > best.Confidence {
			best = candidate
			found = true
		}
		if best.Confidence >= threshold {
			break
		}
	}
	if !found {
		best, _ = FallbackStrategy(payment)
	}

	best.Amount = payment.Amount
	best.Flags = DeriveFlags(best.Products)
	if err := validateDetection(best); err != nil {
		best, _ = FallbackStrategy(payment)
		best.Amount = payment.Amount
		best.Flags = DeriveFlags(best.Products)
	}
	return best
}

func (c *Classifier) strategies() []Strategy {
	if c != nil && len(c.Strategies) > 0 {
		return c.Strategies
	}
	return New().Strategies
}

func (c *Classifier) shortCircuit() float64 {
	if c != nil && c.ShortCircuit > 0 {
		return c.ShortCircuit
	}
	return defaultShortCircuitConfidence
}

func validateDetection(d Detection) error {
	if len(d.Products) == 0 {
		return fmt.Errorf("classifier: detection requires at least one product")
	}
	for _, product := range d.Products {
		if product == "" {
			return fmt.Errorf("classifier: detection product codes must not be blank")
		}
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("classifier: confidence %f out of range", d.Confidence)
	}
	if d.Flags == nil {
		return fmt.Errorf("classifier: delivery flags map is required")
	}
	return nil
}
