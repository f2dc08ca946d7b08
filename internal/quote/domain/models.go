// Package domain contains persistence models for quotes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QuoteStatus represents quote lifecycle states.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

// ItemKind tags what a quote line prices.
type ItemKind string

const (
	ItemKindLabor    ItemKind = "labor"
	ItemKindMaterial ItemKind = "material"
	ItemKindCustom   ItemKind = "custom"
)

// ValidKind reports whether a line kind is one of the known tags.
func ValidKind(kind ItemKind) bool {
	switch kind {
	case ItemKindLabor, ItemKindMaterial, ItemKindCustom:
		return true
	}
	return false
}

// EventType classifies entries on a quote's timeline.
type EventType string

const (
	EventCreated          EventType = "created"
	EventSent             EventType = "sent"
	EventOpened           EventType = "opened"
	EventAccepted         EventType = "accepted"
	EventDeclined         EventType = "declined"
	EventSelectionUpdated EventType = "selection_updated"
)

// Quote is the aggregate root. Totals persist the pricing of the
// current selection; optional lines the customer has not selected are
// excluded from them.
type Quote struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	CompanyID         snowflake.ID      `gorm:"not null;index:ux_quotes_company_number,priority:1"`
	Seq               int64             `gorm:"column:seq;not null;default:0"`
	QuoteNumber       string            `gorm:"column:quote_number;type:text;not null;index:ux_quotes_company_number,priority:2"`
	CustomerName      string            `gorm:"column:customer_name;type:text;not null"`
	ProjectName       *string           `gorm:"column:project_name;type:text"`
	ProfileID         *snowflake.ID     `gorm:"column:profile_id;index"`
	Currency          string            `gorm:"type:text;not null;default:SEK"`
	Status            QuoteStatus       `gorm:"type:text;not null;default:draft;index"`
	PublicToken       string            `gorm:"column:public_token;type:text;not null;uniqueIndex:ux_quotes_public_token"`
	OptionGroupModes  datatypes.JSONMap `gorm:"column:option_group_modes;type:jsonb;not null;default:'{}'"`
	Subtotal          decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	VAT               decimal.Decimal   `gorm:"column:vat;type:numeric(12,2);not null;default:0"`
	Total             decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	AcceptedPackageID *snowflake.ID     `gorm:"column:accepted_package_id"`
	CreatedBy         snowflake.ID      `gorm:"column:created_by;index"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Quote) TableName() string { return "quotes" }

// QuoteItem is a priced line. Mandatory lines always count toward the
// totals; optional lines count only while IsSelected holds, and lines
// sharing a non-empty OptionGroup form one selection group.
type QuoteItem struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	QuoteID     snowflake.ID    `gorm:"not null;index"`
	Kind        ItemKind        `gorm:"type:text;not null"`
	Ref         *string         `gorm:"type:text"`
	Description *string         `gorm:"type:text"`
	Qty         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Unit        *string         `gorm:"type:text"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	IsOptional  bool            `gorm:"column:is_optional;not null;default:false"`
	OptionGroup *string         `gorm:"column:option_group;type:text;index"`
	IsSelected  bool            `gorm:"column:is_selected;not null;default:false"`
	Sort        int             `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (QuoteItem) TableName() string { return "quote_items" }

// QuotePackage is a fixed bundle offered as an alternative to line
// customization. Items holds a JSON snapshot of the bundled lines so
// later catalog edits cannot change an offered package.
type QuotePackage struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	QuoteID   snowflake.ID    `gorm:"not null;index:ix_quote_packages_quote_name,priority:1"`
	Name      string          `gorm:"type:text;not null;index:ix_quote_packages_quote_name,priority:2"`
	Items     datatypes.JSON  `gorm:"type:jsonb;not null"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	VAT       decimal.Decimal `gorm:"column:vat;type:numeric(12,2);not null;default:0"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	IsDefault bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (QuotePackage) TableName() string { return "quote_packages" }

// QuoteEvent is one entry on a quote's timeline.
type QuoteEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	QuoteID   snowflake.ID      `gorm:"not null;index:ix_quote_events_quote_type_created,priority:1"`
	Type      EventType         `gorm:"type:text;not null;index:ix_quote_events_quote_type_created,priority:2"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_quote_events_quote_type_created,priority:3"`
}

// TableName sets the database table name.
func (QuoteEvent) TableName() string { return "quote_events" }

// PackageItem is one line inside a package's JSON snapshot.
type PackageItem struct {
	Ref         string          `json:"ref,omitempty"`
	Kind        ItemKind        `json:"kind"`
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}
