package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/calc"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
)

var (
	defaultVATRate   = decimal.RequireFromString("25.00")
	defaultMarkupPct = decimal.RequireFromString("20.00")
)

const (
	defaultCurrency     = "SEK"
	defaultLaborUnit    = "hour"
	defaultMaterialUnit = "pcs"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) CreateProfile(ctx context.Context, req domain.CreateProfileRequest) (*domain.ProfileResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	vatRate := defaultVATRate
	if req.VATRate != nil {
		if req.VATRate.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		vatRate = *req.VATRate
	}

	now := time.Now().UTC()
	profile := &domain.PriceProfile{
		ID:        s.genID.Generate().Int64(),
		CompanyID: companyID.Int64(),
		Name:      name,
		Currency:  currency,
		VATRate:   vatRate,
		IsDefault: req.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertProfile(ctx, s.db, profile); err != nil {
		return nil, err
	}

	s.log.Info("price profile created",
		zap.String("profile_id", snowflake.ID(profile.ID).String()),
		zap.String("company_id", companyID.String()),
	)

	resp := toProfileResponse(profile)
	return &resp, nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]domain.ProfileResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	items, err := s.repo.ListProfiles(ctx, s.db, companyID.Int64())
	if err != nil {
		return nil, err
	}

	resp := make([]domain.ProfileResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toProfileResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetProfile(ctx context.Context, id string) (*domain.ProfileResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	profileID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	profile, err := s.repo.FindProfileByID(ctx, s.db, companyID.Int64(), profileID.Int64())
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}

	resp := toProfileResponse(profile)
	return &resp, nil
}

func (s *Service) CreateLaborRate(ctx context.Context, req domain.CreateLaborRateRequest) (*domain.LaborRateResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	if req.UnitPrice == nil || req.UnitPrice.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	existing, err := s.repo.FindLaborRateByCode(ctx, s.db, companyID.Int64(), code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrInvalidCode
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = defaultLaborUnit
	}

	var profileID *int64
	if req.ProfileID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.ProfileID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		value := parsed.Int64()
		profileID = &value
	}

	now := time.Now().UTC()
	rate := &domain.LaborRate{
		ID:          s.genID.Generate().Int64(),
		CompanyID:   companyID.Int64(),
		ProfileID:   profileID,
		Code:        code,
		Description: trimPtr(req.Description),
		Unit:        unit,
		UnitPrice:   *req.UnitPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertLaborRate(ctx, s.db, rate); err != nil {
		return nil, err
	}

	resp := toLaborRateResponse(rate)
	return &resp, nil
}

func (s *Service) ListLaborRates(ctx context.Context, filter domain.ListFilter) ([]domain.LaborRateResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	items, err := s.repo.ListLaborRates(ctx, s.db, companyID.Int64(), filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.LaborRateResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toLaborRateResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) UpdateLaborRate(ctx context.Context, req domain.UpdateLaborRateRequest) (*domain.LaborRateResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	rateID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	rate, err := s.repo.FindLaborRateByID(ctx, s.db, companyID.Int64(), rateID.Int64())
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, domain.ErrNotFound
	}

	if req.Description != nil {
		rate.Description = trimPtr(req.Description)
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			unit = defaultLaborUnit
		}
		rate.Unit = unit
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		rate.UnitPrice = *req.UnitPrice
	}

	rate.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateLaborRate(ctx, s.db, rate); err != nil {
		return nil, err
	}

	resp := toLaborRateResponse(rate)
	return &resp, nil
}

func (s *Service) DeleteLaborRate(ctx context.Context, id string) error {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ErrInvalidCompany
	}

	rateID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	rate, err := s.repo.FindLaborRateByID(ctx, s.db, companyID.Int64(), rateID.Int64())
	if err != nil {
		return err
	}
	if rate == nil {
		return domain.ErrNotFound
	}

	return s.repo.DeleteLaborRate(ctx, s.db, companyID.Int64(), rateID.Int64())
}

func (s *Service) CreateMaterial(ctx context.Context, req domain.CreateMaterialRequest) (*domain.MaterialResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.UnitCost == nil || req.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = defaultMaterialUnit
	}

	markupPct := defaultMarkupPct
	if req.MarkupPct != nil {
		if req.MarkupPct.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		markupPct = *req.MarkupPct
	}

	var profileID *int64
	if req.ProfileID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.ProfileID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		value := parsed.Int64()
		profileID = &value
	}

	now := time.Now().UTC()
	material := &domain.Material{
		ID:        s.genID.Generate().Int64(),
		CompanyID: companyID.Int64(),
		ProfileID: profileID,
		SKU:       trimPtr(req.SKU),
		Name:      name,
		Unit:      unit,
		UnitCost:  *req.UnitCost,
		MarkupPct: markupPct,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertMaterial(ctx, s.db, material); err != nil {
		return nil, err
	}

	resp := toMaterialResponse(material)
	return &resp, nil
}

func (s *Service) ListMaterials(ctx context.Context, filter domain.ListFilter) ([]domain.MaterialResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	items, err := s.repo.ListMaterials(ctx, s.db, companyID.Int64(), filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MaterialResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toMaterialResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, req domain.UpdateMaterialRequest) (*domain.MaterialResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	materialID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	material, err := s.repo.FindMaterialByID(ctx, s.db, companyID.Int64(), materialID.Int64())
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		material.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			unit = defaultMaterialUnit
		}
		material.Unit = unit
	}
	if req.UnitCost != nil {
		if req.UnitCost.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		material.UnitCost = *req.UnitCost
	}
	if req.MarkupPct != nil {
		if req.MarkupPct.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		material.MarkupPct = *req.MarkupPct
	}

	material.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateMaterial(ctx, s.db, material); err != nil {
		return nil, err
	}

	resp := toMaterialResponse(material)
	return &resp, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ErrInvalidCompany
	}

	materialID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	material, err := s.repo.FindMaterialByID(ctx, s.db, companyID.Int64(), materialID.Int64())
	if err != nil {
		return err
	}
	if material == nil {
		return domain.ErrNotFound
	}

	return s.repo.DeleteMaterial(ctx, s.db, companyID.Int64(), materialID.Int64())
}

func (s *Service) PriceLabor(ctx context.Context, companyID int64, code string) (*domain.LinePrice, error) {
	code = strings.TrimSpace(code)
	if companyID == 0 || code == "" {
		return nil, domain.ErrInvalidCode
	}

	rate, err := s.repo.FindLaborRateByCode(ctx, s.db, companyID, code)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, domain.ErrNotFound
	}

	description := rate.Code
	if rate.Description != nil && strings.TrimSpace(*rate.Description) != "" {
		description = *rate.Description
	}

	return &domain.LinePrice{
		Ref:         rate.Code,
		Description: description,
		Unit:        rate.Unit,
		UnitPrice:   rate.UnitPrice,
	}, nil
}

func (s *Service) PriceMaterial(ctx context.Context, companyID int64, sku string) (*domain.LinePrice, error) {
	sku = strings.TrimSpace(sku)
	if companyID == 0 || sku == "" {
		return nil, domain.ErrInvalidCode
	}

	material, err := s.repo.FindMaterialBySKU(ctx, s.db, companyID, sku)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, domain.ErrNotFound
	}

	ref := sku
	if material.SKU != nil {
		ref = *material.SKU
	}

	return &domain.LinePrice{
		Ref:         ref,
		Description: material.Name,
		Unit:        material.Unit,
		UnitPrice:   calc.ApplyMarkup(material.UnitCost, material.MarkupPct),
	}, nil
}

func (s *Service) ResolveProfile(ctx context.Context, companyID int64, profileID string) (*domain.ProfileResponse, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	if strings.TrimSpace(profileID) == "" {
		profile, err := s.repo.FindDefaultProfile(ctx, s.db, companyID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, domain.ErrNotFound
		}
		resp := toProfileResponse(profile)
		return &resp, nil
	}

	parsed, err := snowflake.ParseString(strings.TrimSpace(profileID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	profile, err := s.repo.FindProfileByID(ctx, s.db, companyID, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}

	resp := toProfileResponse(profile)
	return &resp, nil
}

func toProfileResponse(p *domain.PriceProfile) domain.ProfileResponse {
	return domain.ProfileResponse{
		ID:        snowflake.ID(p.ID).String(),
		CompanyID: snowflake.ID(p.CompanyID).String(),
		Name:      p.Name,
		Currency:  p.Currency,
		VATRate:   p.VATRate,
		IsDefault: p.IsDefault,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toLaborRateResponse(r *domain.LaborRate) domain.LaborRateResponse {
	resp := domain.LaborRateResponse{
		ID:          snowflake.ID(r.ID).String(),
		CompanyID:   snowflake.ID(r.CompanyID).String(),
		Code:        r.Code,
		Description: r.Description,
		Unit:        r.Unit,
		UnitPrice:   r.UnitPrice,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ProfileID != nil {
		value := snowflake.ID(*r.ProfileID).String()
		resp.ProfileID = &value
	}
	return resp
}

func toMaterialResponse(m *domain.Material) domain.MaterialResponse {
	resp := domain.MaterialResponse{
		ID:        snowflake.ID(m.ID).String(),
		CompanyID: snowflake.ID(m.CompanyID).String(),
		SKU:       m.SKU,
		Name:      m.Name,
		Unit:      m.Unit,
		UnitCost:  m.UnitCost,
		MarkupPct: m.MarkupPct,
		SellPrice: calc.ApplyMarkup(m.UnitCost, m.MarkupPct),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ProfileID != nil {
		value := snowflake.ID(*m.ProfileID).String()
		resp.ProfileID = &value
	}
	return resp
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
