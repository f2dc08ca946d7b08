package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)

	raiseBand = decimal.RequireFromString("1.1")
	lowerBand = decimal.RequireFromString("0.9")
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Pricing *config.PricingConfigHolder
	Repo    domain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	pricing *config.PricingConfigHolder
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("tuning.service"),
		genID:   p.GenID,
		pricing: p.Pricing,
		repo:    p.Repo,
	}
}

// LogAdjustment writes the log row and, when the quote has a linked
// intake, folds the edit into the rolling-median stat and the
// auto-tuning pattern in the same transaction. Quotes without an
// intake still get the log row so the edit history stays complete.
func (s *Service) LogAdjustment(ctx context.Context, req domain.LogAdjustmentRequest) error {
	if req.CompanyID == 0 {
		return domain.ErrInvalidCompany
	}
	if req.QuoteID == 0 {
		return domain.ErrInvalidQuote
	}
	itemRef := strings.TrimSpace(req.ItemRef)
	if itemRef == "" {
		return domain.ErrInvalidItemRef
	}

	cfg := s.pricing.Get()
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &domain.QuoteAdjustmentLog{
			ID:                s.genID.Generate(),
			QuoteID:           req.QuoteID,
			CompanyID:         req.CompanyID,
			UserID:            req.UserID,
			ItemRef:           itemRef,
			ItemKind:          req.ItemKind,
			OriginalQty:       req.OriginalQty,
			AdjustedQty:       req.AdjustedQty,
			OriginalUnitPrice: req.OriginalUnitPrice,
			AdjustedUnitPrice: req.AdjustedUnitPrice,
			Reason:            req.Reason,
			CreatedAt:         now,
		}
		if err := s.repo.InsertLog(ctx, tx, entry); err != nil {
			return err
		}

		key, err := s.repo.FindRequirementsKey(ctx, tx, req.CompanyID, req.QuoteID)
		if err != nil {
			return err
		}
		if key == nil {
			return nil
		}

		if err := s.refreshStat(ctx, tx, cfg, req.CompanyID, key, itemRef, now); err != nil {
			return err
		}
		return s.refreshPattern(ctx, tx, cfg, req.CompanyID, key, itemRef, req, now)
	})
	if err != nil {
		return err
	}

	s.log.Info("adjustment logged",
		zap.String("quote_id", req.QuoteID.String()),
		zap.String("item_ref", itemRef),
	)
	return nil
}

func (s *Service) ListAdjustments(ctx context.Context, quoteID string) ([]domain.AdjustmentLogResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	id, err := parseID(quoteID)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidQuote
	}

	rows, err := s.repo.ListLogsByQuote(ctx, s.db, companyID, id)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AdjustmentLogResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLogResponse(row))
	}
	return out, nil
}

func (s *Service) Insights(ctx context.Context, ruleKey string) (*domain.InsightsResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	ruleKey = strings.TrimSpace(ruleKey)
	if ruleKey == "" {
		return nil, domain.ErrInvalidRuleKey
	}

	stats, err := s.repo.ListStats(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	cfg := s.pricing.Get()
	resp := &domain.InsightsResponse{
		RuleKey: ruleKey,
		Items:   []domain.InsightItem{},
	}
	for _, stat := range stats {
		if stat.Key != ruleKey {
			continue
		}

		var confidence string
		switch {
		case stat.N >= cfg.Tuning.HighConfidenceN:
			confidence = "high"
			resp.HighConfidenceItems++
		case stat.N >= cfg.Tuning.MediumConfidence:
			confidence = "medium"
			resp.MediumConfidenceItems++
		default:
			confidence = "low"
			resp.LowConfidenceItems++
		}

		updatedAt := stat.UpdatedAt
		resp.Items = append(resp.Items, domain.InsightItem{
			ItemRef:        stat.ItemRef,
			MedianFactor:   stat.MedianFactor,
			SampleCount:    stat.N,
			Confidence:     confidence,
			Interpretation: interpretFactor(cfg, stat.MedianFactor, stat.N),
			LastUpdated:    &updatedAt,
		})
	}
	resp.TotalItems = len(resp.Items)
	return resp, nil
}

func (s *Service) ConfidentFactor(ctx context.Context, companyID snowflake.ID, patternKey string) (*domain.AppliedFactor, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	patternKey = strings.TrimSpace(patternKey)
	if patternKey == "" {
		return nil, nil
	}

	pattern, err := s.repo.FindPattern(ctx, s.db, companyID, patternKey)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		return nil, nil
	}

	threshold := decimal.NewFromFloat(s.pricing.Get().Learning.ApplyThreshold)
	if !pattern.ConfidenceScore.GreaterThan(threshold) {
		return nil, nil
	}
	return &domain.AppliedFactor{
		Factor:     pattern.AdjustmentFactor,
		Confidence: pattern.ConfidenceScore,
	}, nil
}

// refreshStat recomputes the rolling median over the most recent
// adjustments of this item ref, the just-inserted one included.
// Factors are clamped to the configured band before the median so a
// single wild edit cannot drag the stat outside it.
func (s *Service) refreshStat(ctx context.Context, tx *gorm.DB, cfg config.PricingConfig, companyID snowflake.ID, key *domain.RequirementsKey, itemRef string, now time.Time) error {
	logs, err := s.repo.ListRecentLogs(ctx, tx, companyID, itemRef, cfg.Tuning.WindowSize)
	if err != nil {
		return err
	}

	minFactor := decimal.NewFromFloat(cfg.Tuning.MinFactor)
	maxFactor := decimal.NewFromFloat(cfg.Tuning.MaxFactor)

	factors := make([]decimal.Decimal, 0, len(logs))
	for _, row := range logs {
		if row.OriginalQty.Sign() <= 0 {
			continue
		}
		factor := row.AdjustedQty.Div(row.OriginalQty)
		if factor.LessThan(minFactor) {
			factor = minFactor
		}
		if factor.GreaterThan(maxFactor) {
			factor = maxFactor
		}
		factors = append(factors, factor)
	}
	if len(factors) == 0 {
		return nil
	}

	stat := &domain.TuningStat{
		CompanyID:    companyID,
		Key:          domain.RuleKey(key.RoomType, key.FinishLevel),
		ItemRef:      itemRef,
		MedianFactor: median(factors).Round(3),
		N:            len(factors),
		UpdatedAt:    now,
	}
	return s.repo.SaveStat(ctx, tx, stat)
}

// refreshPattern folds the raw, unclamped factor into the weighted
// average and bumps confidence one step toward the cap.
func (s *Service) refreshPattern(ctx context.Context, tx *gorm.DB, cfg config.PricingConfig, companyID snowflake.ID, key *domain.RequirementsKey, itemRef string, req domain.LogAdjustmentRequest, now time.Time) error {
	factor := one
	if req.OriginalQty.Sign() > 0 {
		factor = req.AdjustedQty.Div(req.OriginalQty)
	}

	patternKey := domain.PatternKey(key.RoomType, key.FinishLevel, itemRef)
	existing, err := s.repo.FindPattern(ctx, tx, companyID, patternKey)
	if err != nil {
		return err
	}

	if existing == nil {
		pattern := &domain.AutoTuningPattern{
			ID:               s.genID.Generate(),
			CompanyID:        companyID,
			PatternKey:       patternKey,
			AdjustmentFactor: factor.Round(4),
			ConfidenceScore:  decimal.NewFromFloat(cfg.Learning.InitialConfidence),
			SampleCount:      1,
			LastAdjustedAt:   now,
			CreatedAt:        now,
		}
		return s.repo.InsertPattern(ctx, tx, pattern)
	}

	n := decimal.NewFromInt(int64(existing.SampleCount))
	blended := existing.AdjustmentFactor.Mul(n).Add(factor).Div(n.Add(one)).Round(4)

	confidence := existing.ConfidenceScore.Add(decimal.NewFromFloat(cfg.Learning.ConfidenceStep))
	maxConfidence := decimal.NewFromFloat(cfg.Learning.MaxConfidence)
	if confidence.GreaterThan(maxConfidence) {
		confidence = maxConfidence
	}

	return s.repo.UpdatePattern(ctx, tx, existing.ID, map[string]any{
		"adjustment_factor": blended,
		"confidence_score":  confidence,
		"sample_count":      existing.SampleCount + 1,
		"last_adjusted_at":  now,
	})
}

func median(factors []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(factors))
	copy(sorted, factors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(two)
	}
	return sorted[mid]
}

// interpretFactor renders the staff-facing Swedish reading of a median
// factor. The ±10% band around 1.0 is baked into the wording.
func interpretFactor(cfg config.PricingConfig, factor decimal.Decimal, sampleCount int) string {
	var direction, percentage string
	switch {
	case factor.GreaterThan(raiseBand):
		direction = "högre"
		percentage = factor.Sub(one).Mul(hundred).StringFixed(0) + "%"
	case factor.LessThan(lowerBand):
		direction = "lägre"
		percentage = one.Sub(factor).Mul(hundred).StringFixed(0) + "%"
	default:
		direction = "ungefär samma"
		percentage = "±10%"
	}

	var reliability string
	switch {
	case sampleCount >= cfg.Tuning.HighConfidenceN:
		reliability = "hög tillförlitlighet"
	case sampleCount >= cfg.Tuning.MediumConfidence:
		reliability = "medel tillförlitlighet"
	default:
		reliability = "låg tillförlitlighet"
	}

	return fmt.Sprintf("Användare justerar vanligtvis till %s kvantitet (%s) med %s", direction, percentage, reliability)
}

func toLogResponse(row domain.QuoteAdjustmentLog) domain.AdjustmentLogResponse {
	return domain.AdjustmentLogResponse{
		ID:                row.ID.String(),
		QuoteID:           row.QuoteID.String(),
		ItemRef:           row.ItemRef,
		ItemKind:          row.ItemKind,
		OriginalQty:       row.OriginalQty,
		AdjustedQty:       row.AdjustedQty,
		OriginalUnitPrice: row.OriginalUnitPrice,
		AdjustedUnitPrice: row.AdjustedUnitPrice,
		Reason:            row.Reason,
		CreatedAt:         row.CreatedAt,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
