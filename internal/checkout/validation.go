package checkout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9 -]{3,12}$`)
	cardNumberPattern = regexp.MustCompile(`^\d{13,19}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardCVCPattern    = regexp.MustCompile(`^\d{3,4}$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Field error messages, keyed by the JSON field name they apply to.
const (
	MsgFullName    = "Enter your full name."
	MsgEmail       = "Enter a valid email address."
	MsgAddress     = "Enter a valid street address."
	MsgCity        = "Enter a valid city."
	MsgPostalCode  = "Enter a valid postal code."
	MsgCountry     = "Enter a valid country."
	MsgCardNumber  = "Card number must be 13 to 19 digits."
	MsgCardExpiry  = "Use MM/YY format."
	MsgCardCVC     = "CVC must be 3 or 4 digits."
	MsgPaypalEmail = "Enter a valid PayPal email address."
)

// FieldErrors maps a form field to its message. Empty means valid.
type FieldErrors map[string]string

// ValidationOptions selects which parts of the form are entered by hand.
// A saved address or payment method skips the corresponding checks.
type ValidationOptions struct {
	RequireShipping bool
	RequirePayment  bool
}

// Validate checks the entered shipping and payment details.
func Validate(shipping ir.ShippingDetails, payment ir.PaymentDetails, opts ValidationOptions) FieldErrors {
	errs := FieldErrors{}

	if opts.RequireShipping {
		if textLen(shipping.FullName) < 2 {
			errs["fullName"] = MsgFullName
		}
		if !emailPattern.MatchString(strings.TrimSpace(shipping.Email)) {
			errs["email"] = MsgEmail
		}
		if textLen(shipping.Address) < 5 {
			errs["address"] = MsgAddress
		}
		if textLen(shipping.City) < 2 {
			errs["city"] = MsgCity
		}
		if !postalCodePattern.MatchString(strings.TrimSpace(shipping.PostalCode)) {
			errs["postalCode"] = MsgPostalCode
		}
		if textLen(shipping.Country) < 2 {
			errs["country"] = MsgCountry
		}
	}

	if !opts.RequirePayment {
		return errs
	}

	switch paymentMethod(payment) {
	case ir.PaymentCard:
		if !cardNumberPattern.MatchString(stripSpaces(payment.CardNumber)) {
			errs["cardNumber"] = MsgCardNumber
		}
		if !cardExpiryPattern.MatchString(strings.TrimSpace(payment.CardExpiry)) {
			errs["cardExpiry"] = MsgCardExpiry
		}
		if !cardCVCPattern.MatchString(strings.TrimSpace(payment.CardCVC)) {
			errs["cardCvc"] = MsgCardCVC
		}
	case ir.PaymentPaypal:
		if !emailPattern.MatchString(strings.TrimSpace(payment.PaypalEmail)) {
			errs["paypalEmail"] = MsgPaypalEmail
		}
	}
	return errs
}

// FormatCardNumber keeps up to 19 digits and groups them by four.
func FormatCardNumber(value string) string {
	digits := onlyDigits(value, 19)
	var groups []string
	for len(digits) > 4 {
		groups = append(groups, digits[:4])
		digits = digits[4:]
	}
	if digits != "" {
		groups = append(groups, digits)
	}
	return strings.Join(groups, " ")
}

// FormatCardExpiry keeps up to 4 digits and inserts the slash of MM/YY.
func FormatCardExpiry(value string) string {
	digits := onlyDigits(value, 4)
	if len(digits) <= 2 {
		return digits
	}
	return digits[:2] + "/" + digits[2:]
}

// FormatCardCVC keeps up to 4 digits.
func FormatCardCVC(value string) string {
	return onlyDigits(value, 4)
}

// paymentMethod defaults an unset method to card.
func paymentMethod(p ir.PaymentDetails) string {
	if p.Method == "" {
		return ir.PaymentCard
	}
	return p.Method
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func stripSpaces(s string) string {
	return whitespacePattern.ReplaceAllString(s, "")
}

func onlyDigits(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
