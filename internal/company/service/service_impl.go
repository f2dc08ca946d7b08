package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db"
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
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (domain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Company{}, domain.ErrInvalidName
	}

	countryCode := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if countryCode == "" {
		countryCode = "SE"
	}
	timezoneName := strings.TrimSpace(req.TimezoneName)
	if timezoneName == "" {
		timezoneName = "Europe/Stockholm"
	}

	now := time.Now().UTC()
	company := domain.Company{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		SupportEmail: strings.TrimSpace(req.SupportEmail),
		CountryCode:  countryCode,
		TimezoneName: timezoneName,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &company); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Company{}, err
		}
		// Slug collision: disambiguate with the tail of the ID.
		company.Slug = fmt.Sprintf("%s-%s", company.Slug, shortSuffix(company.ID))
		if err := s.repo.Insert(ctx, s.db, &company); err != nil {
			return domain.Company{}, err
		}
	}

	s.log.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("slug", company.Slug),
	)

	return company, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCompanyRequest) (domain.Company, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Company{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Company{}, err
	}
	if item == nil {
		return domain.Company{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) GetBySlug(ctx context.Context, rawSlug string) (domain.Company, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawSlug))
	if normalized == "" {
		return domain.Company{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindBySlug(ctx, s.db, normalized)
	if err != nil {
		return domain.Company{}, err
	}
	if item == nil {
		return domain.Company{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	companies := make([]domain.Company, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		companies = append(companies, *item)
	}
	return companies, nil
}

func shortSuffix(id snowflake.ID) string {
	raw := id.String()
	if len(raw) <= 4 {
		return raw
	}
	return raw[len(raw)-4:]
}
