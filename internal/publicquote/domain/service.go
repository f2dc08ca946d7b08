// Package domain defines the customer-facing quote surface. Everything
// here is reached through the quote's public token; no session or
// company scope exists on these calls.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

type Service interface {
	// GetByToken resolves a quote for customer viewing. The first view
	// logs an opened event on the quote's timeline.
	GetByToken(ctx context.Context, token string) (*PublicQuoteResponse, error)

	// UpdateSelection replaces the full optional-item selection and
	// reprices the quote. The submitted IDs are authoritative; the
	// previous selection is discarded.
	UpdateSelection(ctx context.Context, token string, req UpdateSelectionRequest) (*SelectionResponse, error)

	Accept(ctx context.Context, token string, req AcceptRequest) (*AcceptResponse, error)
	Decline(ctx context.Context, token string) (*DeclineResponse, error)
}

// Repository covers the public read path. Writes go through the quote
// repository; only the token lookup needs its own join.
type Repository interface {
	FindQuoteByToken(ctx context.Context, db *gorm.DB, token string) (*QuoteRecord, error)
}

// QuoteRecord is the public read model: the quote row joined with the
// owning company's name.
type QuoteRecord struct {
	ID                snowflake.ID
	CompanyID         snowflake.ID
	CompanyName       string
	QuoteNumber       string
	CustomerName      string
	ProjectName       *string
	ProfileID         *snowflake.ID
	Currency          string
	Status            quotedomain.QuoteStatus
	PublicToken       string
	OptionGroupModes  datatypes.JSONMap
	Subtotal          decimal.Decimal
	VAT               decimal.Decimal
	Total             decimal.Decimal
	AcceptedPackageID *snowflake.ID
	CreatedAt         time.Time
}

type UpdateSelectionRequest struct {
	SelectedItemIDs []string `json:"selectedItemIds"`
}

type AcceptRequest struct {
	// PackageID selects a fixed package. Empty means the customer
	// accepts the current line selection instead.
	PackageID string `json:"packageId"`
}

type PublicQuoteResponse struct {
	ID                string                        `json:"id"`
	CompanyName       string                        `json:"company_name,omitempty"`
	CustomerName      string                        `json:"customer_name"`
	ProjectName       *string                       `json:"project_name,omitempty"`
	Currency          string                        `json:"currency"`
	Status            quotedomain.QuoteStatus       `json:"status"`
	OptionGroupModes  map[string]string             `json:"option_group_modes"`
	OptionGroups      []selection.Group             `json:"option_groups"`
	Items             []quotedomain.ItemResponse    `json:"items"`
	Packages          []quotedomain.PackageResponse `json:"packages"`
	BaseSubtotal      decimal.Decimal               `json:"base_subtotal"`
	OptionalSubtotal  decimal.Decimal               `json:"optional_subtotal"`
	Subtotal          decimal.Decimal               `json:"subtotal"`
	VAT               decimal.Decimal               `json:"vat"`
	Total             decimal.Decimal               `json:"total"`
	SelectedItemCount int                           `json:"selected_item_count"`
	AcceptedPackageID *string                       `json:"accepted_package_id,omitempty"`
	CreatedAt         time.Time                     `json:"created_at"`
}

type SelectionResponse struct {
	Items             []quotedomain.ItemResponse `json:"items"`
	Subtotal          decimal.Decimal            `json:"subtotal"`
	VAT               decimal.Decimal            `json:"vat"`
	Total             decimal.Decimal            `json:"total"`
	BaseSubtotal      decimal.Decimal            `json:"base_subtotal"`
	OptionalSubtotal  decimal.Decimal            `json:"optional_subtotal"`
	SelectedItemCount int                        `json:"selected_item_count"`
	Message           string                     `json:"message"`
}

type AcceptResponse struct {
	Message     string                  `json:"message"`
	Status      quotedomain.QuoteStatus `json:"status"`
	QuoteID     string                  `json:"quote_id"`
	PackageID   string                  `json:"package_id,omitempty"`
	PackageName string                  `json:"package_name,omitempty"`
}

type DeclineResponse struct {
	Message string `json:"message"`
}

var (
	// ErrQuoteUnavailable covers every case where the quote cannot be
	// resolved for public view: bad token, missing row, draft status.
	// Callers cannot distinguish them, by construction.
	ErrQuoteUnavailable = errors.New("quote_unavailable")

	ErrUnknownItem     = errors.New("unknown_item")
	ErrAlreadyAccepted = errors.New("quote_already_accepted")
	ErrQuoteFinalized  = errors.New("quote_finalized")
	ErrInvalidPackage  = errors.New("invalid_package")
)
