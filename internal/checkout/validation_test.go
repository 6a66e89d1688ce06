package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

func validShipping() ir.ShippingDetails {
	return ir.ShippingDetails{
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Address:    "12 Analytical Way",
		City:       "London",
		PostalCode: "SW1A 1AA",
		Country:    "UK",
	}
}

func validCard() ir.PaymentDetails {
	return ir.PaymentDetails{
		Method:     ir.PaymentCard,
		CardNumber: "4242 4242 4242 4242",
		CardExpiry: "12/30",
		CardCVC:    "123",
	}
}

var requireAll = ValidationOptions{RequireShipping: true, RequirePayment: true}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validShipping(), validCard(), requireAll))
	assert.Empty(t, Validate(validShipping(), ir.PaymentDetails{
		Method: ir.PaymentPaypal, PaypalEmail: " buyer@paypal.test ",
	}, requireAll))
}

func TestValidate_ShippingFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*ir.ShippingDetails)
		field string
		msg   string
	}{
		{"short name", func(s *ir.ShippingDetails) { s.FullName = " A " }, "fullName", MsgFullName},
		{"bad email", func(s *ir.ShippingDetails) { s.Email = "ada@example" }, "email", MsgEmail},
		{"email with space", func(s *ir.ShippingDetails) { s.Email = "a da@example.com" }, "email", MsgEmail},
		{"short address", func(s *ir.ShippingDetails) { s.Address = "1 A" }, "address", MsgAddress},
		{"short city", func(s *ir.ShippingDetails) { s.City = "L" }, "city", MsgCity},
		{"short postal code", func(s *ir.ShippingDetails) { s.PostalCode = "12" }, "postalCode", MsgPostalCode},
		{"postal code symbol", func(s *ir.ShippingDetails) { s.PostalCode = "12#45" }, "postalCode", MsgPostalCode},
		{"long postal code", func(s *ir.ShippingDetails) { s.PostalCode = "1234567890123" }, "postalCode", MsgPostalCode},
		{"short country", func(s *ir.ShippingDetails) { s.Country = "U" }, "country", MsgCountry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := validShipping()
			tt.edit(&sh)
			errs := Validate(sh, validCard(), requireAll)
			assert.Equal(t, FieldErrors{tt.field: tt.msg}, errs)
		})
	}
}

func TestValidate_CardFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*ir.PaymentDetails)
		field string
		msg   string
	}{
		{"short number", func(p *ir.PaymentDetails) { p.CardNumber = "4242 4242 4242" }, "cardNumber", MsgCardNumber},
		{"letters in number", func(p *ir.PaymentDetails) { p.CardNumber = "4242x42424242424" }, "cardNumber", MsgCardNumber},
		{"twenty digits", func(p *ir.PaymentDetails) { p.CardNumber = "12345678901234567890" }, "cardNumber", MsgCardNumber},
		{"month 13", func(p *ir.PaymentDetails) { p.CardExpiry = "13/30" }, "cardExpiry", MsgCardExpiry},
		{"no slash", func(p *ir.PaymentDetails) { p.CardExpiry = "1230" }, "cardExpiry", MsgCardExpiry},
		{"short cvc", func(p *ir.PaymentDetails) { p.CardCVC = "12" }, "cardCvc", MsgCardCVC},
		{"long cvc", func(p *ir.PaymentDetails) { p.CardCVC = "12345" }, "cardCvc", MsgCardCVC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validCard()
			tt.edit(&p)
			errs := Validate(validShipping(), p, requireAll)
			assert.Equal(t, FieldErrors{tt.field: tt.msg}, errs)
		})
	}
}

func TestValidate_UnsetMethodIsCard(t *testing.T) {
	errs := Validate(validShipping(), ir.PaymentDetails{}, requireAll)
	assert.Contains(t, errs, "cardNumber")
	assert.Contains(t, errs, "cardExpiry")
	assert.Contains(t, errs, "cardCvc")
}

func TestValidate_Paypal(t *testing.T) {
	errs := Validate(validShipping(), ir.PaymentDetails{Method: ir.PaymentPaypal, PaypalEmail: "nope"}, requireAll)
	assert.Equal(t, FieldErrors{"paypalEmail": MsgPaypalEmail}, errs)
}

func TestValidate_SavedSkipsChecks(t *testing.T) {
	errs := Validate(ir.ShippingDetails{}, ir.PaymentDetails{}, ValidationOptions{})
	assert.Empty(t, errs)

	errs = Validate(ir.ShippingDetails{}, validCard(), ValidationOptions{RequirePayment: true})
	assert.Empty(t, errs)
}

func TestFormatCardNumber(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"4242":                   "4242",
		"42424":                  "4242 4",
		"4242-4242-4242-4242":    "4242 4242 4242 4242",
		"1234567890123456789012": "1234 5678 9012 3456 789",
		"ab12 cd34":              "1234",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCardNumber(in), in)
	}
}

func TestFormatCardExpiry(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"1":     "1",
		"12":    "12",
		"123":   "12/3",
		"12/30": "12/30",
		"12345": "12/34",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCardExpiry(in), in)
	}
}

func TestFormatCardCVC(t *testing.T) {
	assert.Equal(t, "123", FormatCardCVC("1a2b3"))
	assert.Equal(t, "1234", FormatCardCVC("123456"))
	assert.Equal(t, "", FormatCardCVC("abc"))
}
