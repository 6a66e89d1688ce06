package ir

// Category groups products in the catalog.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Product is a catalog entry. Price is exact (see Money).
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       Money    `json:"price"`
	Category    Category `json:"category"`
}

// ProductFilters selects a catalog page. Empty search, zero category and
// zero size are omitted from the query; page is always sent.
type ProductFilters struct {
	Search     string
	CategoryID int64
	Page       int
	Size       int
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Items         []Product `json:"items"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}

// CartItem is one line of a cart. Quantity is always >= 1.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// CartLine is the wire form of a cart item sent to the server.
type CartLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CartResponse is the server's canonical cart.
type CartResponse struct {
	Items []CartItem `json:"items"`
}

// AuthUser identifies the signed-in account.
type AuthUser struct {
	ID    *int64 `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// DisplayName returns the name when known, else the email.
func (u AuthUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// SignInRequest carries credentials.
type SignInRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// SignInResponse is returned by sign-in and session lookup.
type SignInResponse struct {
	Token     string   `json:"token"`
	User      AuthUser `json:"user"`
	ExpiresAt string   `json:"expiresAt,omitempty"`
}

// SignUpRequest registers an account.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse is returned by registration.
type SignUpResponse struct {
	User    AuthUser `json:"user"`
	Message string   `json:"message,omitempty"`
}

// Payment method kinds.
const (
	PaymentCard   = "card"
	PaymentPaypal = "paypal"
)

// ShippingDetails is a freshly entered shipping address.
type ShippingDetails struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentDetails is either a card or a paypal account, selected by Method.
type PaymentDetails struct {
	Method      string `json:"method"`
	CardNumber  string `json:"cardNumber,omitempty"`
	CardExpiry  string `json:"cardExpiry,omitempty"`
	CardCVC     string `json:"cardCvc,omitempty"`
	PaypalEmail string `json:"paypalEmail,omitempty"`
}

// CheckoutItem is a priced line of a checkout request.
type CheckoutItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	UnitPrice Money `json:"unitPrice"`
}

// CheckoutRequest is the order submission payload.
type CheckoutRequest struct {
	Shipping             *ShippingDetails `json:"shipping,omitempty"`
	Payment              *PaymentDetails  `json:"payment,omitempty"`
	SavedAddressID       *int64           `json:"savedAddressId,omitempty"`
	SavedPaymentMethodID *int64           `json:"savedPaymentMethodId,omitempty"`
	SaveShippingAddress  bool             `json:"saveShippingAddress,omitempty"`
	ShippingAddressLabel string           `json:"shippingAddressLabel,omitempty"`
	SavePaymentMethod    bool             `json:"savePaymentMethod,omitempty"`
	PaymentMethodLabel   string           `json:"paymentMethodLabel,omitempty"`
	Items                []CheckoutItem   `json:"items"`
	Subtotal             Money            `json:"subtotal"`
	Currency             string           `json:"currency"`
}

// Checkout statuses.
const (
	CheckoutAccepted = "accepted"
	CheckoutPending  = "pending"
)

// CheckoutResponse confirms an order.
type CheckoutResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
	// Demo is set when the response was synthesized locally because the
	// checkout endpoint is not implemented.
	Demo bool `json:"-"`
}

// OrderItem is an immutable line of a placed order.
type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   Money  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	LineTotal   Money  `json:"lineTotal"`
}

// OrderSummary is an immutable record of a placed order.
type OrderSummary struct {
	OrderID   string      `json:"orderId"`
	Status    string      `json:"status"`
	CreatedAt string      `json:"createdAt"`
	Currency  string      `json:"currency"`
	Subtotal  Money       `json:"subtotal"`
	Items     []OrderItem `json:"items"`
}

// SavedAddress is an address stored on the account.
type SavedAddress struct {
	ID         int64  `json:"id"`
	Label      string `json:"label"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

// AddressInput creates a SavedAddress.
type AddressInput struct {
	Label      string `json:"label"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault,omitempty"`
}

// SavedPaymentMethod is a payment method stored on the account.
type SavedPaymentMethod struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Method      string `json:"method"`
	CardLast4   string `json:"cardLast4,omitempty"`
	CardExpiry  string `json:"cardExpiry,omitempty"`
	PaypalEmail string `json:"paypalEmail,omitempty"`
	IsDefault   bool   `json:"isDefault"`
}

// PaymentMethodInput creates a SavedPaymentMethod.
type PaymentMethodInput struct {
	Label       string `json:"label"`
	Method      string `json:"method"`
	CardLast4   string `json:"cardLast4,omitempty"`
	CardExpiry  string `json:"cardExpiry,omitempty"`
	PaypalEmail string `json:"paypalEmail,omitempty"`
	IsDefault   bool   `json:"isDefault,omitempty"`
}

// AccountUpdate changes the account's name and email.
type AccountUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PasswordUpdate changes the account password.
type PasswordUpdate struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// MessageResponse is a bare {message} body.
type MessageResponse struct {
	Message string `json:"message"`
}
