package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	// LogAdjustment records a quantity edit and folds it into both
	// learning loops. Called by the quote service whenever a staff
	// update changes the quantity of a referenced line.
	LogAdjustment(ctx context.Context, req LogAdjustmentRequest) error

	ListAdjustments(ctx context.Context, quoteID string) ([]AdjustmentLogResponse, error)
	Insights(ctx context.Context, ruleKey string) (*InsightsResponse, error)

	// ConfidentFactor returns the learned quantity factor for a pattern
	// key, or nil while the pattern's confidence is below the apply
	// threshold.
	ConfidentFactor(ctx context.Context, companyID snowflake.ID, patternKey string) (*AppliedFactor, error)
}

type LogAdjustmentRequest struct {
	QuoteID           snowflake.ID
	CompanyID         snowflake.ID
	UserID            snowflake.ID
	ItemRef           string
	ItemKind          string
	OriginalQty       decimal.Decimal
	AdjustedQty       decimal.Decimal
	OriginalUnitPrice decimal.Decimal
	AdjustedUnitPrice decimal.Decimal
	Reason            *string
}

type AdjustmentLogResponse struct {
	ID                string          `json:"id"`
	QuoteID           string          `json:"quote_id"`
	ItemRef           string          `json:"item_ref"`
	ItemKind          string          `json:"item_kind"`
	OriginalQty       decimal.Decimal `json:"original_qty"`
	AdjustedQty       decimal.Decimal `json:"adjusted_qty"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
	AdjustedUnitPrice decimal.Decimal `json:"adjusted_unit_price"`
	Reason            *string         `json:"reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// InsightItem is one learned factor with its Swedish interpretation.
type InsightItem struct {
	ItemRef        string          `json:"item_ref"`
	MedianFactor   decimal.Decimal `json:"median_factor"`
	SampleCount    int             `json:"sample_count"`
	Confidence     string          `json:"confidence"`
	Interpretation string          `json:"interpretation"`
	LastUpdated    *time.Time      `json:"last_updated,omitempty"`
}

type InsightsResponse struct {
	RuleKey               string        `json:"rule_key"`
	TotalItems            int           `json:"total_items"`
	HighConfidenceItems   int           `json:"high_confidence_items"`
	MediumConfidenceItems int           `json:"medium_confidence_items"`
	LowConfidenceItems    int           `json:"low_confidence_items"`
	Items                 []InsightItem `json:"items"`
}

// AppliedFactor is a pattern factor confident enough to be applied
// during generation.
type AppliedFactor struct {
	Factor     decimal.Decimal `json:"factor"`
	Confidence decimal.Decimal `json:"confidence"`
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidQuote   = errors.New("invalid_quote")
	ErrInvalidItemRef = errors.New("invalid_item_ref")
	ErrInvalidRuleKey = errors.New("invalid_rule_key")
)
