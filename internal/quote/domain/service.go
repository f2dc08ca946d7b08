package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error)
	Update(ctx context.Context, req UpdateQuoteRequest) (*QuoteResponse, error)
	List(ctx context.Context, req ListQuotesRequest) (*ListQuotesResponse, error)
	Get(ctx context.Context, id string) (*QuoteResponse, error)

	// Send marks the quote sent, records the event and emails the
	// customer the public link. Re-sending an already sent quote is
	// allowed and records another event.
	Send(ctx context.Context, req SendQuoteRequest) (*SendQuoteResponse, error)

	Events(ctx context.Context, quoteID string) ([]EventResponse, error)
	ExportPDF(ctx context.Context, id string) (*PDFExport, error)
}

type ItemInput struct {
	Kind        ItemKind         `json:"kind"`
	Ref         *string          `json:"ref"`
	Description *string          `json:"description"`
	Qty         decimal.Decimal  `json:"qty"`
	Unit        *string          `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	IsOptional  bool             `json:"is_optional"`
	OptionGroup *string          `json:"option_group"`
	IsSelected  bool             `json:"is_selected"`
}

type PackageInput struct {
	Name      string      `json:"name"`
	Items     []ItemInput `json:"items"`
	IsDefault bool        `json:"is_default"`
}

type CreateQuoteRequest struct {
	CustomerName     string            `json:"customer_name"`
	ProjectName      *string           `json:"project_name"`
	ProfileID        *string           `json:"profile_id"`
	Currency         string            `json:"currency"`
	OptionGroupModes map[string]string `json:"option_group_modes"`
	Items            []ItemInput       `json:"items"`
	Packages         []PackageInput    `json:"packages"`

	// Source lands in the created event's meta. Left empty for staff
	// requests; the generation service sets it.
	Source string `json:"-"`
}

type UpdateQuoteRequest struct {
	ID               string            `json:"-"`
	CustomerName     *string           `json:"customer_name"`
	ProjectName      *string           `json:"project_name"`
	OptionGroupModes map[string]string `json:"option_group_modes"`

	// Items, when present, replaces the full line set. Quantity changes
	// against referenced lines are reported to the tuning loop.
	Items  []ItemInput `json:"items"`
	Reason *string     `json:"reason"`
}

type ListQuotesRequest struct {
	Status     *QuoteStatus `form:"status"`
	Search     string       `form:"search"`
	Pagination pagination.Pagination
}

type SendQuoteRequest struct {
	ID      string `json:"-"`
	ToEmail string `json:"toEmail"`
	Message string `json:"message"`
}

type SendQuoteResponse struct {
	Message   string      `json:"message"`
	Status    QuoteStatus `json:"status"`
	PublicURL string      `json:"public_url"`
}

// ItemResponse is the wire shape of a quote line. isSelected is
// intentionally camelCase; every consumer of the public surface keys
// on that exact spelling.
type ItemResponse struct {
	ID          string          `json:"id"`
	Kind        ItemKind        `json:"kind"`
	Ref         *string         `json:"ref,omitempty"`
	Description *string         `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Unit        *string         `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IsOptional  bool            `json:"is_optional"`
	OptionGroup *string         `json:"option_group,omitempty"`
	IsSelected  bool            `json:"isSelected"`
}

type PackageResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Items     []PackageItem   `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VAT       decimal.Decimal `json:"vat"`
	Total     decimal.Decimal `json:"total"`
	IsDefault bool            `json:"is_default"`
}

type QuoteResponse struct {
	ID                string            `json:"id"`
	QuoteNumber       string            `json:"quote_number"`
	CustomerName      string            `json:"customer_name"`
	ProjectName       *string           `json:"project_name,omitempty"`
	ProfileID         *string           `json:"profile_id,omitempty"`
	Currency          string            `json:"currency"`
	Status            QuoteStatus       `json:"status"`
	PublicToken       string            `json:"public_token"`
	OptionGroupModes  map[string]string `json:"option_group_modes"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	VAT               decimal.Decimal   `json:"vat"`
	Total             decimal.Decimal   `json:"total"`
	BaseSubtotal      decimal.Decimal   `json:"base_subtotal"`
	OptionalSubtotal  decimal.Decimal   `json:"optional_subtotal"`
	AcceptedPackageID *string           `json:"accepted_package_id,omitempty"`
	Items             []ItemResponse    `json:"items"`
	Packages          []PackageResponse `json:"packages"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type QuoteSummary struct {
	ID           string          `json:"id"`
	QuoteNumber  string          `json:"quote_number"`
	CustomerName string          `json:"customer_name"`
	ProjectName  *string         `json:"project_name,omitempty"`
	Currency     string          `json:"currency"`
	Status       QuoteStatus     `json:"status"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ListQuotesResponse struct {
	Quotes   []QuoteSummary       `json:"quotes"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type EventResponse struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

type PDFExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidQuote     = errors.New("invalid_quote")
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidItem      = errors.New("invalid_item")
	ErrInvalidPackage   = errors.New("invalid_package")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrQuoteNotFound    = errors.New("quote_not_found")
	ErrQuoteNotEditable = errors.New("quote_not_editable")
	ErrProfileNotFound  = errors.New("profile_not_found")
)
