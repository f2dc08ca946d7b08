package domain

import (
	"context"
	"errors"
)

type CreateCompanyRequest struct {
	Name         string `json:"name"`
	SupportEmail string `json:"support_email"`
	CountryCode  string `json:"country_code"`
	TimezoneName string `json:"timezone_name"`
}

type GetCompanyRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCompanyRequest) (Company, error)
	GetByID(context.Context, GetCompanyRequest) (Company, error)
	GetBySlug(ctx context.Context, slug string) (Company, error)
	List(context.Context) ([]Company, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
