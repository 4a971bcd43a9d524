package classifier

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-payments/core"
)

func TestClassifyExactTierAmounts(t *testing.T) {
	cases := []struct {
		amount   int64
		products []string
	}{
		{199900, []string{ProductCourse}},
		{299900, []string{ProductCourse, ProductDatabase}},
		{99900, []string{ProductDatabase}},
		{49900, []string{ProductGuide}},
	}

	c := New()
	for _, tc := range cases {
		detection := c.Classify(core.PaymentAttributes{PaymentID: "pay_1", Amount: tc.amount})
		if detection.Method != MethodAmountTier {
			t.Fatalf("amount %d: expected amount_tier method, got %q", tc.amount, detection.Method)
		}
		if detection.Confidence != 0.85 {
			t.Fatalf("amount %d: expected confidence 0.85, got %f", tc.amount, detection.Confidence)
		}
		assertProducts(t, detection.Products, tc.products)
	}
}

func TestClassifyMetadataOverridesAmount(t *testing.T) {
	c := New()
	detection := c.Classify(core.PaymentAttributes{
		PaymentID: "pay_2",
		Amount:    199900,
		Notes:     map[string]string{"products": "database"},
	})
	if detection.Method != MethodMetadata {
		t.Fatalf("expected metadata method, got %q", detection.Method)
	}
	if detection.Confidence < 0.85 {
		t.Fatalf("metadata detection must not be weaker than the amount tier, got %f", detection.Confidence)
	}
	assertProducts(t, detection.Products, []string{ProductDatabase})
	if detection.Flags[FlagSendCourse] {
		t.Fatal("course flag must not be set for a database-only detection")
	}
	if !detection.Flags[FlagSendDatabase] {
		t.Fatal("database flag expected for a database detection")
	}
}

func TestClassifyMetadataPartialRecognition(t *testing.T) {
	c := New()
	detection := c.Classify(core.PaymentAttributes{
		PaymentID: "pay_3",
		Notes:     map[string]string{"products": "course, mystery"},
	})
	if detection.Method != MethodMetadata {
		t.Fatalf("expected metadata method, got %q", detection.Method)
	}
	if detection.Confidence <= 0.7 || detection.Confidence >= 0.95 {
		t.Fatalf("partially recognized list should land between 0.7 and 0.95, got %f", detection.Confidence)
	}
	assertProducts(t, detection.Products, []string{ProductCourse, "mystery"})
}

func TestClassifyNearMissAmountDecays(t *testing.T) {
	c := &Classifier{Strategies: []Strategy{AmountTierStrategy, FallbackStrategy}}

	near := c.Classify(core.PaymentAttributes{PaymentID: "pay_4", Amount: 201900})
	if near.Method != MethodAmountTier {
		t.Fatalf("expected amount_tier method, got %q", near.Method)
	}
	if near.Confidence >= 0.85 || near.Confidence <= 0.4 {
		t.Fatalf("near miss should decay below exact match, got %f", near.Confidence)
	}
	assertProducts(t, near.Products, []string{ProductCourse})

	far := AmountTierStrategyDetection(t, core.PaymentAttributes{PaymentID: "pay_5", Amount: 5000})
	if far.Confidence != 0.4 {
		t.Fatalf("distant amount should bottom out at 0.4, got %f", far.Confidence)
	}
	assertProducts(t, far.Products, []string{ProductUnknown})
	for flag, set := range far.Flags {
		if set {
			t.Fatalf("unknown detection must not set delivery flags, %q was true", flag)
		}
	}
}

func TestClassifyBelowLowestTierIsUnknown(t *testing.T) {
	// Close to the cheapest tier but below it: no tier signal applies.
	detection := AmountTierStrategyDetection(t, core.PaymentAttributes{PaymentID: "pay_10", Amount: 45000})
	if detection.Confidence != 0.4 {
		t.Fatalf("below-lowest-tier amount should score the 0.4 floor, got %f", detection.Confidence)
	}
	assertProducts(t, detection.Products, []string{ProductUnknown})

	// One paisa above the cheapest tier still decays toward that tier.
	above := AmountTierStrategyDetection(t, core.PaymentAttributes{PaymentID: "pay_11", Amount: 50900})
	assertProducts(t, above.Products, []string{ProductGuide})
	if above.Confidence <= 0.4 || above.Confidence >= 0.85 {
		t.Fatalf("near miss above the lowest tier should decay, got %f", above.Confidence)
	}
}

func AmountTierStrategyDetection(t *testing.T, payment core.PaymentAttributes) Detection {
	t.Helper()
	detection, ok := AmountTierStrategy(payment)
	if !ok {
		t.Fatal("amount tier strategy should match any positive amount")
	}
	return detection
}

func TestClassifyNotesBundlePhrase(t *testing.T) {
	c := &Classifier{Strategies: []Strategy{NotesStrategy, FallbackStrategy}}
	detection := c.Classify(core.PaymentAttributes{
		PaymentID: "pay_6",
		Notes:     map[string]string{"comment": "Purchased the Course + Database bundle"},
	})
	if detection.Method != MethodNotes {
		t.Fatalf("expected notes method, got %q", detection.Method)
	}
	if detection.Confidence != 0.8 {
		t.Fatalf("bundle phrase should score 0.8, got %f", detection.Confidence)
	}
	assertProducts(t, detection.Products, []string{ProductCourse, ProductDatabase})
}

func TestClassifyNotesAccumulatesKeywords(t *testing.T) {
	c := &Classifier{Strategies: []Strategy{NotesStrategy, FallbackStrategy}}

	two := c.Classify(core.PaymentAttributes{
		PaymentID: "pay_12",
		Notes:     map[string]string{"comment": "please deliver the course and the guide"},
	})
	if two.Method != MethodNotes {
		t.Fatalf("expected notes method, got %q", two.Method)
	}
	assertProducts(t, two.Products, []string{ProductCourse, ProductGuide})

	one, ok := NotesStrategy(core.PaymentAttributes{Notes: map[string]string{"comment": "just the guide"}})
	if !ok {
		t.Fatal("single keyword should match")
	}
	assertProducts(t, one.Products, []string{ProductGuide})
	if one.Confidence >= two.Confidence {
		t.Fatalf("confidence must grow with matched keywords: one=%f two=%f", one.Confidence, two.Confidence)
	}

	three, ok := NotesStrategy(core.PaymentAttributes{Notes: map[string]string{"comment": "course, database, guide"}})
	if !ok {
		t.Fatal("three keywords should match")
	}
	assertProducts(t, three.Products, []string{ProductCourse, ProductDatabase, ProductGuide})
	if three.Confidence != 0.75 {
		t.Fatalf("keyword confidence must cap at 0.75, got %f", three.Confidence)
	}
	if two.Confidence >= three.Confidence {
		t.Fatalf("confidence must grow with matched keywords: two=%f three=%f", two.Confidence, three.Confidence)
	}
}

func TestClassifyCustomerHeuristic(t *testing.T) {
	c := &Classifier{Strategies: []Strategy{CustomerHeuristicStrategy, FallbackStrategy}}

	corporate := c.Classify(core.PaymentAttributes{PaymentID: "pay_7", Email: "ops@acme.io"})
	if corporate.Method != MethodCustomerHeuristic {
		t.Fatalf("expected customer_heuristic method, got %q", corporate.Method)
	}
	if corporate.Confidence != 0.5 {
		t.Fatalf("corporate domain should score 0.5, got %f", corporate.Confidence)
	}
	assertProducts(t, corporate.Products, []string{ProductDatabase})

	personal, ok := CustomerHeuristicStrategy(core.PaymentAttributes{PaymentID: "pay_8", Email: "someone@gmail.com"})
	if !ok {
		t.Fatal("heuristic should match a well-formed email")
	}
	if personal.Confidence != 0.3 {
		t.Fatalf("personal domain should score 0.3, got %f", personal.Confidence)
	}
	assertProducts(t, personal.Products, []string{ProductCourse})
}

func TestClassifyIsTotal(t *testing.T) {
	c := New()
	payments := []core.PaymentAttributes{
		{},
		{Amount: 0},
		{Amount: -500},
		{Amount: 1},
		{Email: "not-an-email"},
		{Notes: map[string]string{"irrelevant": "nothing here"}},
	}
	for i, payment := range payments {
		detection := c.Classify(payment)
		if len(detection.Products) == 0 {
			t.Fatalf("case %d: classifier must always return products", i)
		}
		if detection.Flags == nil {
			t.Fatalf("case %d: classifier must always return flags", i)
		}
		if detection.Confidence < 0 || detection.Confidence > 1 {
			t.Fatalf("case %d: confidence out of range: %f", i, detection.Confidence)
		}
	}
}

func TestClassifyFallbackWhenNoSignal(t *testing.T) {
	c := New()
	detection := c.Classify(core.PaymentAttributes{PaymentID: "pay_9"})
	if detection.Method != MethodFallback {
		t.Fatalf("expected fallback method, got %q", detection.Method)
	}
	if detection.Confidence != 0.5 {
		t.Fatalf("fallback should score 0.5, got %f", detection.Confidence)
	}
	assertProducts(t, detection.Products, []string{ProductGuide})
}

func TestDeriveFlags(t *testing.T) {
	cases := []struct {
		products []string
		expected map[string]bool
	}{
		{[]string{ProductCourse}, map[string]bool{FlagSendCourse: true, FlagSendDatabase: false, FlagSendGuide: false}},
		{[]string{ProductCourse, ProductDatabase}, map[string]bool{FlagSendCourse: true, FlagSendDatabase: true, FlagSendGuide: false}},
		{[]string{ProductUnknown}, map[string]bool{FlagSendCourse: false, FlagSendDatabase: false, FlagSendGuide: false}},
		{nil, map[string]bool{FlagSendCourse: false, FlagSendDatabase: false, FlagSendGuide: false}},
	}
	for _, tc := range cases {
		flags := DeriveFlags(tc.products)
		for name, want := range tc.expected {
			if flags[name] != want {
				t.Fatalf("products %v: flag %q = %v, want %v", tc.products, name, flags[name], want)
			}
		}
	}
}

func assertProducts(t *testing.T, got, want []string) {
	t.Helper()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("products mismatch: got %v, want %v", got, want)
	}
}
