package classifier

import (
	"math"
	"sort"
	"strings"

	"github.com/goliatone/go-payments/core"
)

// Product codes used across the delivery pipeline.
const (
	ProductCourse   = "course"
	ProductDatabase = "database"
	ProductGuide    = "guide"
	ProductUnknown  = "unknown"
)

// amountTier maps an exact charge amount in minor units (paise) to the
// products that price point sells.
type amountTier struct {
	Amount   int64
	Products []string
}

// Tiers are ordered most expensive first so decay matching picks the nearest
// tier below the observed amount.
var amountTiers = []amountTier{
	{Amount: 299900, Products: []string{ProductCourse, ProductDatabase}},
	{Amount: 199900, Products: []string{ProductCourse}},
	{Amount: 99900, Products: []string{ProductDatabase}},
	{Amount: 49900, Products: []string{ProductGuide}},
}

// Metadata note keys that carry explicit product declarations.
var metadataProductKeys = []string{"products", "product", "items", "sku"}

var knownProducts = map[string]struct{}{
	ProductCourse:   {},
	ProductDatabase: {},
	ProductGuide:    {},
}

// MetadataStrategy trusts explicit product declarations in payment notes.
// Confidence scales with how many declared codes are recognized: a fully
// recognized list earns 0.95, a partially recognized one degrades toward 0.7.
func MetadataStrategy(payment core.PaymentAttributes) (Detection, bool) {
	var declared []string
	for _, key := range metadataProductKeys {
		value, ok := payment.Notes[key]
		if !ok {
			continue
		}
		declared = splitProductList(value)
		if len(declared) > 0 {
			break
		}
	}
	if len(declared) == 0 {
		return Detection{}, false
	}

	recognized := 0
	products := make([]string, 0, len(declared))
	for _, code := range declared {
		products = append(products, code)
		if _, ok := knownProducts[code]; ok {
			recognized++
		}
	}
	ratio := float64(recognized) / float64(len(declared))
	confidence := 0.7 + 0.25*ratio

	return Detection{
		Products:   dedupeProducts(products),
		Flags:      DeriveFlags(products),
		Confidence: confidence,
		Method:     MethodMetadata,
		Amount:     payment.Amount,
	}, true
}

// AmountTierStrategy matches the charge amount against known price points.
// An exact match earns 0.85. A near miss decays linearly with distance to
// the closest tier, bottoming out at 0.4, and keeps that tier's products.
// Amounts below every tier classify as unknown at the floor confidence.
func AmountTierStrategy(payment core.PaymentAttributes) (Detection, bool) {
	if payment.Amount <= 0 {
		return Detection{}, false
	}

	var closest *amountTier
	var closestDistance int64 = math.MaxInt64
	for i := range amountTiers {
		tier := &amountTiers[i]
		distance := payment.Amount - tier.Amount
		if distance < 0 {
			distance = -distance
		}
		if distance < closestDistance {
			closest = tier
			closestDistance = distance
		}
	}
	if closest == nil {
		return Detection{}, false
	}

	if closestDistance == 0 {
		return Detection{
			Products:   append([]string(nil), closest.Products...),
			Flags:      DeriveFlags(closest.Products),
			Confidence: 0.85,
			Method:     MethodAmountTier,
			Amount:     payment.Amount,
		}, true
	}

	// Amounts below the cheapest price point carry no tier signal at all.
	if payment.Amount < amountTiers[len(amountTiers)-1].Amount {
		products := []string{ProductUnknown}
		return Detection{
			Products:   products,
			Flags:      DeriveFlags(products),
			Confidence: 0.4,
			Method:     MethodAmountTier,
			Amount:     payment.Amount,
		}, true
	}

	// Decay one confidence point per percentage point of distance from the
	// tier price, clamped to the 0.4 floor.
	distanceRatio := float64(closestDistance) / float64(closest.Amount)
	confidence := 0.85 - distanceRatio
	if confidence < 0.4 {
		confidence = 0.4
	}

	products := append([]string(nil), closest.Products...)
	if confidence <= 0.4 {
		products = []string{ProductUnknown}
	}
	return Detection{
		Products:   products,
		Flags:      DeriveFlags(products),
		Confidence: confidence,
		Method:     MethodAmountTier,
		Amount:     payment.Amount,
	}, true
}

// Bundle phrases name the course+database combination explicitly; they win
// over single-product keywords and carry a fixed confidence.
var notesBundlePhrases = []string{"course + database", "course and database", "bundle"}

// Single-product keywords scanned after bundle phrases, in the order the
// matched products are reported.
var notesKeywords = []struct {
	Keyword string
	Product string
}{
	{Keyword: "course", Product: ProductCourse},
	{Keyword: "database", Product: ProductDatabase},
	{Keyword: "guide", Product: ProductGuide},
}

const (
	notesBundleConfidence  = 0.8
	notesKeywordBase       = 0.5
	notesKeywordStep       = 0.1
	notesKeywordConfidence = 0.75
)

// NotesStrategy scans free-form note values for product mentions. Every
// matched keyword contributes its product, and confidence grows with the
// number of matches, capped at 0.75 since prose is a weaker signal than an
// exact price point.
func NotesStrategy(payment core.PaymentAttributes) (Detection, bool) {
	if len(payment.Notes) == 0 {
		return Detection{}, false
	}

	keys := make([]string, 0, len(payment.Notes))
	for key := range payment.Notes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var corpus strings.Builder
	for _, key := range keys {
		corpus.WriteString(strings.ToLower(payment.Notes[key]))
		corpus.WriteString(" ")
	}
	text := corpus.String()

	for _, phrase := range notesBundlePhrases {
		if !strings.Contains(text, phrase) {
			continue
		}
		products := []string{ProductCourse, ProductDatabase}
		return Detection{
			Products:   products,
			Flags:      DeriveFlags(products),
			Confidence: notesBundleConfidence,
			Method:     MethodNotes,
			Amount:     payment.Amount,
		}, true
	}

	var products []string
	for _, candidate := range notesKeywords {
		if strings.Contains(text, candidate.Keyword) {
			products = append(products, candidate.Product)
		}
	}
	if len(products) == 0 {
		return Detection{}, false
	}

	confidence := notesKeywordBase + notesKeywordStep*float64(len(products))
	if confidence > notesKeywordConfidence {
		confidence = notesKeywordConfidence
	}
	return Detection{
		Products:   products,
		Flags:      DeriveFlags(products),
		Confidence: confidence,
		Method:     MethodNotes,
		Amount:     payment.Amount,
	}, true
}

// CustomerHeuristicStrategy is a weak signal derived from who is paying:
// corporate email domains skew toward the database product, personal ones
// toward the course. It never exceeds 0.5 so any stronger signal wins.
func CustomerHeuristicStrategy(payment core.PaymentAttributes) (Detection, bool) {
	email := strings.ToLower(strings.TrimSpace(payment.Email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return Detection{}, false
	}
	domain := email[at+1:]

	personalDomains := map[string]struct{}{
		"gmail.com":   {},
		"yahoo.com":   {},
		"outlook.com": {},
		"hotmail.com": {},
		"icloud.com":  {},
	}
	if _, personal := personalDomains[domain]; personal {
		return Detection{
			Products:   []string{ProductCourse},
			Flags:      DeriveFlags([]string{ProductCourse}),
			Confidence: 0.3,
			Method:     MethodCustomerHeuristic,
			Amount:     payment.Amount,
		}, true
	}
	return Detection{
		Products:   []string{ProductDatabase},
		Flags:      DeriveFlags([]string{ProductDatabase}),
		Confidence: 0.5,
		Method:     MethodCustomerHeuristic,
		Amount:     payment.Amount,
	}, true
}

// FallbackStrategy always succeeds with the lowest-priced product so the
// classifier stays total even for payments with no usable signal.
func FallbackStrategy(payment core.PaymentAttributes) (Detection, bool) {
	return Detection{
		Products:   []string{ProductGuide},
		Flags:      DeriveFlags([]string{ProductGuide}),
		Confidence: 0.5,
		Method:     MethodFallback,
		Amount:     payment.Amount,
	}, true
}

func splitProductList(value string) []string {
	raw := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	codes := make([]string, 0, len(raw))
	for _, part := range raw {
		code := strings.ToLower(strings.TrimSpace(part))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func dedupeProducts(products []string) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0, len(products))
	for _, product := range products {
		if _, dup := seen[product]; dup {
			continue
		}
		seen[product] = struct{}{}
		out = append(out, product)
	}
	return out
}
