package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*RuleResponse, error)
	GetRule(ctx context.Context, id string) (*RuleResponse, error)
	GetRuleByKey(ctx context.Context, key string) (*RuleResponse, error)
	ListRules(ctx context.Context) ([]RuleResponse, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*RuleResponse, error)
	DeleteRule(ctx context.Context, id string) error

	// AutoGenerate evaluates the rule set matching the intake's room
	// and finish level, prices every line from the catalog, applies
	// confident tuning factors and creates a draft quote linked back
	// to the intake.
	AutoGenerate(ctx context.Context, req AutoGenerateRequest) (*AutoGenerateResponse, error)
}

type CreateRuleRequest struct {
	Key   string                    `json:"key"`
	Rules map[string]map[string]any `json:"rules"`
}

type UpdateRuleRequest struct {
	ID    string                    `json:"-"`
	Key   *string                   `json:"key"`
	Rules map[string]map[string]any `json:"rules"`
}

type RuleResponse struct {
	ID        string                    `json:"id"`
	CompanyID string                    `json:"company_id"`
	Key       string                    `json:"key"`
	Rules     map[string]map[string]any `json:"rules"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

type AutoGenerateRequest struct {
	RequirementsID string  `json:"requirements_id"`
	ProfileID      string  `json:"profile_id"`
	CustomerName   string  `json:"customer_name"`
	ProjectName    *string `json:"project_name"`
}

// GeneratedItem is one produced quote line with its generation
// metadata. Confidence is the learned pattern confidence when a tuning
// factor was applied, otherwise the no-history default.
type GeneratedItem struct {
	Kind         string           `json:"kind"`
	Ref          string           `json:"ref"`
	Description  *string          `json:"description,omitempty"`
	Qty          decimal.Decimal  `json:"qty"`
	Unit         *string          `json:"unit,omitempty"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineTotal    decimal.Decimal  `json:"line_total"`
	IsOptional   bool             `json:"is_optional"`
	OptionGroup  *string          `json:"option_group,omitempty"`
	TuningFactor *decimal.Decimal `json:"tuning_factor,omitempty"`
	Confidence   decimal.Decimal  `json:"confidence_per_item"`
}

type AutoGenerateResponse struct {
	QuoteID           string            `json:"quote_id"`
	QuoteNumber       string            `json:"quote_number"`
	RequirementsID    string            `json:"requirements_id"`
	Items             []GeneratedItem   `json:"items"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	VAT               decimal.Decimal   `json:"vat"`
	Total             decimal.Decimal   `json:"total"`
	ConfidencePerItem []decimal.Decimal `json:"confidence_per_item"`
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidKey     = errors.New("invalid_key")
	ErrInvalidRules   = errors.New("invalid_rules")
	ErrRuleExists     = errors.New("rule_exists")
	ErrNotFound       = errors.New("not_found")

	// ErrRequirementsNotFound keeps a missing intake distinguishable
	// from a missing rule when auto-generation fails.
	ErrRequirementsNotFound = errors.New("requirements_not_found")
	ErrNoGenerationRule     = errors.New("no_generation_rule")
	ErrUnknownRef           = errors.New("unknown_ref")
	ErrInvalidProfile       = errors.New("invalid_profile")
	ErrEmptyGeneration      = errors.New("empty_generation")
)
