package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
)

const (
	maxListEntries = 50
	maxNotesLength = 2000
)

var maxAreaM2 = decimal.NewFromInt(10000)

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
		log:   p.Log.Named("requirements.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequirementsRequest) (*domain.RequirementsResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateData(req.Data); err != nil {
		return nil, err
	}

	quoteID, err := parseQuoteLink(req.QuoteID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &domain.ProjectRequirements{
		ID:                s.genID.Generate(),
		CompanyID:         companyID,
		QuoteID:           quoteID,
		RoomType:          req.Data.RoomType,
		AreaM2:            req.Data.AreaM2,
		FinishLevel:       req.Data.FinishLevel,
		HasPlumbingWork:   req.Data.HasPlumbingWork,
		HasElectricalWork: req.Data.HasElectricalWork,
		MaterialPrefs:     req.Data.MaterialPrefs,
		SiteConstraints:   req.Data.SiteConstraints,
		Notes:             req.Data.Notes,
		Data:              payload,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		return nil, err
	}

	s.log.Info("project requirements created",
		zap.String("requirements_id", row.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("room_type", string(row.RoomType)),
	)

	return toResponse(row), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.RequirementsResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rowID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindByID(ctx, s.db, companyID, rowID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(row), nil
}

func (s *Service) GetByQuote(ctx context.Context, quoteID string) (*domain.RequirementsResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := parseID(quoteID)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindByQuote(ctx, s.db, companyID, parsed)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(row), nil
}

func (s *Service) List(ctx context.Context) ([]domain.RequirementsResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RequirementsResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *toResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequirementsRequest) (*domain.RequirementsResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rowID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindByID(ctx, s.db, companyID, rowID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}

	if req.Data != nil {
		if err := validateData(*req.Data); err != nil {
			return nil, err
		}
		payload, err := json.Marshal(*req.Data)
		if err != nil {
			return nil, err
		}
		fields["room_type"] = req.Data.RoomType
		fields["area_m2"] = req.Data.AreaM2
		fields["finish_level"] = req.Data.FinishLevel
		fields["has_plumbing_work"] = req.Data.HasPlumbingWork
		fields["has_electrical_work"] = req.Data.HasElectricalWork
		fields["material_prefs"] = pq.StringArray(req.Data.MaterialPrefs)
		fields["site_constraints"] = pq.StringArray(req.Data.SiteConstraints)
		fields["notes"] = req.Data.Notes
		fields["data"] = payload
	}

	if req.QuoteID != nil {
		quoteID, err := parseQuoteLink(req.QuoteID)
		if err != nil {
			return nil, err
		}
		fields["quote_id"] = quoteID
	}

	if err := s.repo.UpdateFields(ctx, s.db, rowID, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return err
	}
	rowID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, companyID, rowID)
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, domain.ErrInvalidCompany
	}
	return companyID, nil
}

func validateData(data domain.RequirementsData) error {
	if !domain.ValidRoomType(data.RoomType) {
		return domain.ErrInvalidRoomType
	}
	if !domain.ValidFinishLevel(data.FinishLevel) {
		return domain.ErrInvalidFinishLevel
	}
	if data.AreaM2.Sign() <= 0 || data.AreaM2.GreaterThan(maxAreaM2) {
		return domain.ErrInvalidArea
	}
	if len(data.MaterialPrefs) > maxListEntries || len(data.SiteConstraints) > maxListEntries {
		return domain.ErrListTooLong
	}
	if data.Notes != nil && len(*data.Notes) > maxNotesLength {
		return domain.ErrNotesTooLong
	}
	return nil
}

// parseQuoteLink reads an optional quote reference. An empty string
// clears the link.
func parseQuoteLink(quoteID *string) (*snowflake.ID, error) {
	if quoteID == nil || *quoteID == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(*quoteID)
	if err != nil {
		return nil, domain.ErrInvalidQuote
	}
	return &parsed, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toResponse(row *domain.ProjectRequirements) *domain.RequirementsResponse {
	resp := &domain.RequirementsResponse{
		ID:        row.ID.String(),
		CompanyID: row.CompanyID.String(),
		Data: domain.RequirementsData{
			RoomType:          row.RoomType,
			AreaM2:            row.AreaM2,
			FinishLevel:       row.FinishLevel,
			HasPlumbingWork:   row.HasPlumbingWork,
			HasElectricalWork: row.HasElectricalWork,
			MaterialPrefs:     row.MaterialPrefs,
			SiteConstraints:   row.SiteConstraints,
			Notes:             row.Notes,
		},
		CreatedAt: row.CreatedAt,
	}
	if row.QuoteID != nil {
		quoteID := row.QuoteID.String()
		resp.QuoteID = &quoteID
	}
	return resp
}
