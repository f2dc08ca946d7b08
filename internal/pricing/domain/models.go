package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceProfile carries the currency and VAT rate applied to every
// quote priced against it.
type PriceProfile struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	CompanyID int64           `json:"company_id" gorm:"column:company_id;not null;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null;default:SEK"`
	VATRate   decimal.Decimal `json:"vat_rate" gorm:"column:vat_rate;type:numeric(5,2);not null"`
	IsDefault bool            `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceProfile) TableName() string { return "price_profiles" }

// LaborRate prices one unit of a labor code, hours by default.
type LaborRate struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	CompanyID   int64           `json:"company_id" gorm:"column:company_id;not null;index:ux_labor_rates_company_code,priority:1"`
	ProfileID   *int64          `json:"profile_id,omitempty" gorm:"column:profile_id"`
	Code        string          `json:"code" gorm:"type:text;not null;index:ux_labor_rates_company_code,priority:2"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	Unit        string          `json:"unit" gorm:"type:text;not null;default:hour"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LaborRate) TableName() string { return "labor_rates" }

// Material is a purchasable item. Quote lines sell it at unit cost
// plus the markup percentage.
type Material struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	CompanyID int64           `json:"company_id" gorm:"column:company_id;not null;index"`
	ProfileID *int64          `json:"profile_id,omitempty" gorm:"column:profile_id"`
	SKU       *string         `json:"sku,omitempty" gorm:"column:sku;type:text;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Unit      string          `json:"unit" gorm:"type:text;not null;default:pcs"`
	UnitCost  decimal.Decimal `json:"unit_cost" gorm:"column:unit_cost;type:numeric(12,2);not null"`
	MarkupPct decimal.Decimal `json:"markup_pct" gorm:"column:markup_pct;type:numeric(6,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Material) TableName() string { return "materials" }
