package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RentalLineRequest struct {
	Barcode  string `json:"barcode"  validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"min=0"`
	// UnitPrice overrides the catalog price for this line.
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CreateRentalRequest struct {
	CustomerName         string              `json:"customer_name"          validate:"max=120"`
	Items                []RentalLineRequest `json:"items"                  validate:"required,min=1,dive"`
	Discount             decimal.Decimal     `json:"discount"               validate:"min=0"`
	PaidAmount           decimal.Decimal     `json:"paid_amount"            validate:"min=0"`
	Deposit              decimal.Decimal     `json:"deposit"                validate:"min=0"`
	PaymentMethod        string              `json:"payment_method"         validate:"required,oneof=cash card pending"`
	DepositPaymentMethod string              `json:"deposit_payment_method" validate:"omitempty,oneof=cash card"`
}

type AdditionalPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"         validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card"`
}

type ReturnLineRequest struct {
	Barcode  string `json:"barcode"  validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

// ReturnRequest returns lines and/or settles the deposit.
// DepositAction: return | forfeit
type ReturnRequest struct {
	Items         []ReturnLineRequest `json:"items"          validate:"dive"`
	DepositAction string              `json:"deposit_action" validate:"omitempty,oneof=return forfeit"`
}

type PaymentMethodChangeRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card pending"`
}

type SwapItemRequest struct {
	OldBarcode string           `json:"old_barcode" validate:"required,max=64"`
	NewBarcode string           `json:"new_barcode" validate:"required,max=64,nefield=OldBarcode"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	// PaymentMethod settles the price delta; pending leaves it on the balance.
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash card pending"`
}

type RentalFilter struct {
	Status string `form:"status"           validate:"omitempty,oneof=active partial returned cancelled"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RentalItemResponse struct {
	ID               string          `json:"id"`
	ItemID           string          `json:"item_id"`
	Barcode          string          `json:"barcode"`
	Name             string          `json:"name"`
	IsGeneric        bool            `json:"is_generic"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	Returned         bool            `json:"returned"`
}

type RentalResponse struct {
	ID                   string               `json:"id"`
	StoreID              string               `json:"store_id"`
	CustomerName         string               `json:"customer_name"`
	Status               string               `json:"status"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	Discount             decimal.Decimal      `json:"discount"`
	TotalAmount          decimal.Decimal      `json:"total_amount"`
	PaidAmount           decimal.Decimal      `json:"paid_amount"`
	PendingAmount        decimal.Decimal      `json:"pending_amount"`
	Deposit              decimal.Decimal      `json:"deposit"`
	DepositPaymentMethod string               `json:"deposit_payment_method"`
	DepositReturned      bool                 `json:"deposit_returned"`
	DepositForfeited     bool                 `json:"deposit_forfeited"`
	PaymentMethod        string               `json:"payment_method"`
	Version              int                  `json:"version"`
	CreatedAt            string               `json:"created_at"`
	Items                []RentalItemResponse `json:"items"`
}

// RentalPaymentResult is returned by every money-moving rental operation.
type RentalPaymentResult struct {
	Rental    RentalResponse     `json:"rental"`
	Movements []MovementResponse `json:"movements"`
}

type RentalListResponse struct {
	Data  []RentalResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Items ───────────────────────────────────────────────────────────────────

type CreateItemRequest struct {
	Barcode   string          `json:"barcode"    validate:"required,max=64"`
	Name      string          `json:"name"       validate:"required,max=120"`
	Price     decimal.Decimal `json:"price"      validate:"min=0"`
	IsGeneric bool            `json:"is_generic"`
	Stock     int             `json:"stock"      validate:"min=0"`
}

type ItemResponse struct {
	ID             string          `json:"id"`
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	IsGeneric      bool            `json:"is_generic"`
	Status         string          `json:"status"`
	StockTotal     int             `json:"stock_total"`
	StockAvailable int             `json:"stock_available"`
}

type ItemListResponse struct {
	Data  []ItemResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type PageQuery struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=200"`
}
