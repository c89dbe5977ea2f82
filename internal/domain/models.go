package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices leave the API as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Crop struct {
	ID       int64           `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Type     string          `db:"type" json:"type"`
	Region   string          `db:"region" json:"region"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Quantity int             `db:"quantity" json:"quantity"`
}

// CropFilter narrows a catalog listing. Empty fields do not filter.
type CropFilter struct {
	Search string
	Type   string
	Region string
}

type CropPage struct {
	Crops   []Crop
	Page    int
	PerPage int
	Total   int
}

// CartItem is a transient cart line sent by the storefront. ID and Quantity
// are optional; a missing quantity counts as 1.
type CartItem struct {
	ID       *int64          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity,omitempty"`
}

func (c CartItem) Qty() int {
	if c.Quantity == nil {
		return 1
	}
	return *c.Quantity
}

type Recommendation struct {
	Crop
	SimilarityScore float64 `json:"similarity_score"`
}

const (
	StatusPending = "pending"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"

	MethodCashOnDelivery = "cash_on_delivery"
)

// OrderDateLayout is fixed-width UTC so order dates sort as text.
const OrderDateLayout = "2006-01-02T15:04:05.000000Z"

type Order struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	OrderDate        string          `db:"order_date" json:"order_date"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status           string          `db:"status" json:"status"`
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	PaymentStatus    string          `db:"payment_status" json:"payment_status"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference,omitempty"`
	ShippingAddress  string          `db:"shipping_address" json:"shipping_address"`
	ShippingRegion   string          `db:"shipping_region" json:"shipping_region"`
	ShippingPhone    string          `db:"shipping_phone" json:"shipping_phone"`
	ShippingEmail    string          `db:"shipping_email" json:"shipping_email"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	OrderID    string          `db:"order_id" json:"order_id"`
	LineNo     int             `db:"line_no" json:"line_no"`
	CropID     int64           `db:"crop_id" json:"crop_id"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`

	// Joined from crops on read.
	CropName   string `db:"crop_name" json:"crop_name,omitempty"`
	CropType   string `db:"crop_type" json:"crop_type,omitempty"`
	CropRegion string `db:"crop_region" json:"crop_region,omitempty"`
}

// OrderLine is one submitted line of an order request.
type OrderLine struct {
	ID       *int64           `json:"id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

type ShippingInfo struct {
	Address string `json:"address"`
	Region  string `json:"region"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type OrderRequest struct {
	UserID        string       `json:"user_id"`
	Items         []OrderLine  `json:"items"`
	ShippingInfo  ShippingInfo `json:"shipping_info"`
	PaymentMethod string       `json:"payment_method"`
}

type OrderResult struct {
	OrderID       string
	TotalAmount   decimal.Decimal
	PaymentStatus string
}

type OrderPage struct {
	Orders  []Order
	Page    int
	PerPage int
	Total   int
}
