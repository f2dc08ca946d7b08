package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	CreateProfile(ctx context.Context, req CreateProfileRequest) (*ProfileResponse, error)
	ListProfiles(ctx context.Context) ([]ProfileResponse, error)
	GetProfile(ctx context.Context, id string) (*ProfileResponse, error)

	CreateLaborRate(ctx context.Context, req CreateLaborRateRequest) (*LaborRateResponse, error)
	ListLaborRates(ctx context.Context, filter ListFilter) ([]LaborRateResponse, error)
	UpdateLaborRate(ctx context.Context, req UpdateLaborRateRequest) (*LaborRateResponse, error)
	DeleteLaborRate(ctx context.Context, id string) error

	CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*MaterialResponse, error)
	ListMaterials(ctx context.Context, filter ListFilter) ([]MaterialResponse, error)
	UpdateMaterial(ctx context.Context, req UpdateMaterialRequest) (*MaterialResponse, error)
	DeleteMaterial(ctx context.Context, id string) error

	// Lookups used when pricing quote lines. Material prices include
	// the markup; labor prices are the raw hourly rate.
	PriceLabor(ctx context.Context, companyID int64, code string) (*LinePrice, error)
	PriceMaterial(ctx context.Context, companyID int64, sku string) (*LinePrice, error)
	ResolveProfile(ctx context.Context, companyID int64, profileID string) (*ProfileResponse, error)
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Search  string
	SortBy  string
	OrderBy string
}

// LinePrice is a catalog entry shaped the way quote lines consume it.
type LinePrice struct {
	Ref         string
	Description string
	Unit        string
	UnitPrice   decimal.Decimal
}

type CreateProfileRequest struct {
	Name      string           `json:"name"`
	Currency  string           `json:"currency"`
	VATRate   *decimal.Decimal `json:"vat_rate"`
	IsDefault bool             `json:"is_default"`
}

type ProfileResponse struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateLaborRateRequest struct {
	ProfileID   *string          `json:"profile_id"`
	Code        string           `json:"code"`
	Description *string          `json:"description"`
	Unit        string           `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

type UpdateLaborRateRequest struct {
	ID          string           `json:"-"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

type LaborRateResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	ProfileID   *string         `json:"profile_id,omitempty"`
	Code        string          `json:"code"`
	Description *string         `json:"description,omitempty"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateMaterialRequest struct {
	ProfileID *string          `json:"profile_id"`
	SKU       *string          `json:"sku"`
	Name      string           `json:"name"`
	Unit      string           `json:"unit"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	MarkupPct *decimal.Decimal `json:"markup_pct"`
}

type UpdateMaterialRequest struct {
	ID        string           `json:"-"`
	Name      *string          `json:"name"`
	Unit      *string          `json:"unit"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	MarkupPct *decimal.Decimal `json:"markup_pct"`
}

type MaterialResponse struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	ProfileID *string         `json:"profile_id,omitempty"`
	SKU       *string         `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
	SellPrice decimal.Decimal `json:"sell_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidPrice   = errors.New("invalid_price")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
