package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequirementsRequest) (*RequirementsResponse, error)
	Get(ctx context.Context, id string) (*RequirementsResponse, error)

	// GetByQuote resolves the requirements linked to a quote, or
	// ErrNotFound when the quote was built without intake.
	GetByQuote(ctx context.Context, quoteID string) (*RequirementsResponse, error)

	List(ctx context.Context) ([]RequirementsResponse, error)

	// Update accepts new intake data, a quote link, or both. Nothing
	// else on a submission can change after the fact.
	Update(ctx context.Context, req UpdateRequirementsRequest) (*RequirementsResponse, error)
	Delete(ctx context.Context, id string) error
}

// RequirementsData is the intake payload as staff submit it.
type RequirementsData struct {
	RoomType          RoomType        `json:"room_type"`
	AreaM2            decimal.Decimal `json:"area_m2"`
	FinishLevel       FinishLevel     `json:"finish_level"`
	HasPlumbingWork   bool            `json:"has_plumbing_work"`
	HasElectricalWork bool            `json:"has_electrical_work"`
	MaterialPrefs     []string        `json:"material_prefs"`
	SiteConstraints   []string        `json:"site_constraints"`
	Notes             *string         `json:"notes,omitempty"`
}

type CreateRequirementsRequest struct {
	QuoteID *string          `json:"quote_id"`
	Data    RequirementsData `json:"data"`
}

type UpdateRequirementsRequest struct {
	ID      string            `json:"-"`
	QuoteID *string           `json:"quote_id"`
	Data    *RequirementsData `json:"data"`
}

type RequirementsResponse struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	QuoteID   *string          `json:"quote_id,omitempty"`
	Data      RequirementsData `json:"data"`
	CreatedAt time.Time        `json:"created_at"`
}

var (
	ErrInvalidCompany     = errors.New("invalid_company")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidQuote       = errors.New("invalid_quote")
	ErrInvalidRoomType    = errors.New("invalid_room_type")
	ErrInvalidFinishLevel = errors.New("invalid_finish_level")
	ErrInvalidArea        = errors.New("invalid_area")
	ErrListTooLong        = errors.New("list_too_long")
	ErrNotesTooLong       = errors.New("notes_too_long")
	ErrNotFound           = errors.New("not_found")
)
