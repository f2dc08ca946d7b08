package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/calc"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/rules"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

const generationSource = "auto_generation"

// noHistoryConfidence is reported for lines no learned pattern covers,
// below the initial pattern confidence so the review screen ranks them
// as less certain.
var noHistoryConfidence = decimal.RequireFromString("0.50")

// probeVars drive save-time validation of rule expressions. The values
// are arbitrary; the probe only has to surface syntax errors and
// unknown identifiers before a rule is stored.
var probeVars = map[string]any{
	"areaM2":            decimal.NewFromInt(10),
	"hasPlumbingWork":   true,
	"hasElectricalWork": true,
	"roomType":          "bathroom",
	"finishLevel":       "standard",
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Repo            domain.Repository
	QuoteSvc        quotedomain.Service
	PricingSvc      pricingdomain.Service
	RequirementsSvc requirementsdomain.Service
	TuningSvc       tuningdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            domain.Repository
	quoteSvc        quotedomain.Service
	pricingSvc      pricingdomain.Service
	requirementsSvc requirementsdomain.Service
	tuningSvc       tuningdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("generation.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		quoteSvc:        p.QuoteSvc,
		pricingSvc:      p.PricingSvc,
		requirementsSvc: p.RequirementsSvc,
		tuningSvc:       p.TuningSvc,
	}
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (*domain.RuleResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	key := strings.TrimSpace(req.Key)
	if _, _, err := domain.ParseKey(key); err != nil {
		return nil, err
	}
	normalized, err := validateRules(req.Rules)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindRuleByKey(ctx, s.db, companyID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrRuleExists
	}

	now := time.Now().UTC()
	rule := &domain.GenerationRule{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Key:       key,
		Rules:     normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertRule(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.log.Info("generation rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("key", key),
	)
	return toRuleResponse(rule), nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*domain.RuleResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	ruleID, err := parseID(id)
	if err != nil || ruleID == 0 {
		return nil, domain.ErrInvalidID
	}

	rule, err := s.repo.FindRuleByID(ctx, s.db, companyID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return toRuleResponse(rule), nil
}

func (s *Service) GetRuleByKey(ctx context.Context, key string) (*domain.RuleResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	rule, err := s.repo.FindRuleByKey(ctx, s.db, companyID, key)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return toRuleResponse(rule), nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.RuleResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	rows, err := s.repo.ListRules(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RuleResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *toRuleResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (*domain.RuleResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	ruleID, err := parseID(req.ID)
	if err != nil || ruleID == 0 {
		return nil, domain.ErrInvalidID
	}

	rule, err := s.repo.FindRuleByID(ctx, s.db, companyID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}

	if req.Key != nil {
		key := strings.TrimSpace(*req.Key)
		if _, _, err := domain.ParseKey(key); err != nil {
			return nil, err
		}
		if key != rule.Key {
			dup, err := s.repo.FindRuleByKey(ctx, s.db, companyID, key)
			if err != nil {
				return nil, err
			}
			if dup != nil {
				return nil, domain.ErrRuleExists
			}
		}
		fields["key"] = key
	}

	if req.Rules != nil {
		normalized, err := validateRules(req.Rules)
		if err != nil {
			return nil, err
		}
		fields["rules"] = normalized
	}

	if err := s.repo.UpdateRuleFields(ctx, s.db, ruleID, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindRuleByID(ctx, s.db, companyID, ruleID)
	if err != nil {
		return nil, err
	}
	return toRuleResponse(updated), nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ErrInvalidCompany
	}
	ruleID, err := parseID(id)
	if err != nil || ruleID == 0 {
		return domain.ErrInvalidID
	}

	if err := s.repo.DeleteRule(ctx, s.db, companyID, ruleID); err != nil {
		return err
	}
	s.log.Info("generation rule deleted", zap.String("rule_id", ruleID.String()))
	return nil
}

// AutoGenerate builds a draft quote from an intake. Lines whose
// expression evaluates to zero are dropped, which is how rules express
// conditional work (case(hasPlumbingWork, 8, 0)). The intake is linked
// to the created quote so later staff adjustments feed the tuning
// loops.
func (s *Service) AutoGenerate(ctx context.Context, req domain.AutoGenerateRequest) (*domain.AutoGenerateResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	intake, err := s.requirementsSvc.Get(ctx, req.RequirementsID)
	if err != nil {
		if errors.Is(err, requirementsdomain.ErrNotFound) || errors.Is(err, requirementsdomain.ErrInvalidID) {
			return nil, domain.ErrRequirementsNotFound
		}
		return nil, err
	}

	room := string(intake.Data.RoomType)
	finish := string(intake.Data.FinishLevel)

	rule, err := s.repo.FindRuleByKey(ctx, s.db, companyID, tuningdomain.RuleKey(room, finish))
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNoGenerationRule
	}

	profile, err := s.pricingSvc.ResolveProfile(ctx, companyID.Int64(), strings.TrimSpace(req.ProfileID))
	if err != nil {
		if errors.Is(err, pricingdomain.ErrNotFound) {
			return nil, domain.ErrInvalidProfile
		}
		return nil, err
	}

	eval, err := rules.NewEvaluator(map[string]any{
		"areaM2":            intake.Data.AreaM2,
		"hasPlumbingWork":   intake.Data.HasPlumbingWork,
		"hasElectricalWork": intake.Data.HasElectricalWork,
		"roomType":          room,
		"finishLevel":       finish,
	})
	if err != nil {
		return nil, err
	}

	generated, err := s.generateLines(ctx, companyID, rule, eval, room, finish)
	if err != nil {
		return nil, err
	}
	if len(generated) == 0 {
		return nil, domain.ErrEmptyGeneration
	}

	created, err := s.quoteSvc.Create(ctx, buildQuoteRequest(req, profile, generated))
	if err != nil {
		return nil, err
	}

	if _, err := s.requirementsSvc.Update(ctx, requirementsdomain.UpdateRequirementsRequest{
		ID:      intake.ID,
		QuoteID: &created.ID,
	}); err != nil {
		s.log.Warn("intake link failed",
			zap.String("requirements_id", intake.ID),
			zap.String("quote_id", created.ID),
			zap.Error(err),
		)
	}

	confidences := make([]decimal.Decimal, 0, len(generated))
	for _, item := range generated {
		confidences = append(confidences, item.Confidence)
	}

	s.log.Info("quote auto-generated",
		zap.String("quote_id", created.ID),
		zap.String("requirements_id", intake.ID),
		zap.Int("items", len(generated)),
	)

	return &domain.AutoGenerateResponse{
		QuoteID:           created.ID,
		QuoteNumber:       created.QuoteNumber,
		RequirementsID:    intake.ID,
		Items:             generated,
		Subtotal:          created.Subtotal,
		VAT:               created.VAT,
		Total:             created.Total,
		ConfidencePerItem: confidences,
	}, nil
}

func (s *Service) generateLines(ctx context.Context, companyID snowflake.ID, rule *domain.GenerationRule, eval *rules.Evaluator, room, finish string) ([]domain.GeneratedItem, error) {
	var generated []domain.GeneratedItem

	for _, section := range []string{domain.SectionLabor, domain.SectionMaterials} {
		entries, ok := rule.Rules[section].(map[string]any)
		if !ok {
			continue
		}

		for _, ref := range sortedRefs(entries) {
			spec, err := domain.ParseRuleSpec(entries[ref])
			if err != nil {
				return nil, err
			}

			qty, err := eval.Evaluate(spec.Qty)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", section, ref, err)
			}
			if qty.Sign() < 0 {
				return nil, fmt.Errorf("%w: %s/%s yields a negative quantity", domain.ErrInvalidRules, section, ref)
			}
			if qty.IsZero() {
				continue
			}

			var price *pricingdomain.LinePrice
			var kind quotedomain.ItemKind
			if section == domain.SectionLabor {
				kind = quotedomain.ItemKindLabor
				price, err = s.pricingSvc.PriceLabor(ctx, companyID.Int64(), ref)
			} else {
				kind = quotedomain.ItemKindMaterial
				price, err = s.pricingSvc.PriceMaterial(ctx, companyID.Int64(), ref)
			}
			if err != nil {
				if errors.Is(err, pricingdomain.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownRef, section, ref)
				}
				return nil, err
			}

			confidence := noHistoryConfidence
			var tuningFactor *decimal.Decimal
			applied, err := s.tuningSvc.ConfidentFactor(ctx, companyID, tuningdomain.PatternKey(room, finish, ref))
			if err != nil {
				s.log.Warn("tuning lookup failed",
					zap.String("item_ref", ref),
					zap.Error(err),
				)
			} else if applied != nil {
				qty = qty.Mul(applied.Factor).Round(2)
				factor := applied.Factor
				tuningFactor = &factor
				confidence = applied.Confidence
			}
			if qty.Sign() <= 0 {
				continue
			}

			item := domain.GeneratedItem{
				Kind:         string(kind),
				Ref:          ref,
				Qty:          qty,
				UnitPrice:    price.UnitPrice,
				LineTotal:    calc.LineTotal(qty, price.UnitPrice),
				IsOptional:   spec.Optional,
				OptionGroup:  spec.Group,
				TuningFactor: tuningFactor,
				Confidence:   confidence,
			}
			if price.Description != "" {
				desc := price.Description
				item.Description = &desc
			}
			if price.Unit != "" {
				unit := price.Unit
				item.Unit = &unit
			}
			generated = append(generated, item)
		}
	}
	return generated, nil
}

func buildQuoteRequest(req domain.AutoGenerateRequest, profile *pricingdomain.ProfileResponse, generated []domain.GeneratedItem) quotedomain.CreateQuoteRequest {
	items := make([]quotedomain.ItemInput, 0, len(generated))
	modes := map[string]string{}
	for _, g := range generated {
		ref := g.Ref
		items = append(items, quotedomain.ItemInput{
			Kind:        quotedomain.ItemKind(g.Kind),
			Ref:         &ref,
			Qty:         g.Qty,
			IsOptional:  g.IsOptional,
			OptionGroup: g.OptionGroup,
		})
		if g.OptionGroup != nil {
			modes[*g.OptionGroup] = string(selection.ModeMulti)
		}
	}

	profileID := profile.ID
	return quotedomain.CreateQuoteRequest{
		CustomerName:     req.CustomerName,
		ProjectName:      req.ProjectName,
		ProfileID:        &profileID,
		Currency:         profile.Currency,
		OptionGroupModes: modes,
		Items:            items,
		Source:           generationSource,
	}
}

func validateRules(input map[string]map[string]any) (datatypes.JSONMap, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: rules cannot be empty", domain.ErrInvalidRules)
	}

	probe, err := rules.NewEvaluator(probeVars)
	if err != nil {
		return nil, err
	}

	out := datatypes.JSONMap{}
	for section, entries := range input {
		if section != domain.SectionLabor && section != domain.SectionMaterials {
			return nil, fmt.Errorf("%w: unknown section %q", domain.ErrInvalidRules, section)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: section %s is empty", domain.ErrInvalidRules, section)
		}

		normalized := map[string]any{}
		for ref, raw := range entries {
			if strings.TrimSpace(ref) == "" {
				return nil, fmt.Errorf("%w: empty ref in section %s", domain.ErrInvalidRules, section)
			}
			spec, err := domain.ParseRuleSpec(raw)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", section, ref, err)
			}
			if _, err := probe.Evaluate(spec.Qty); err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", domain.ErrInvalidRules, section, ref, err)
			}
			normalized[ref] = raw
		}
		out[section] = normalized
	}
	return out, nil
}

func toRuleResponse(rule *domain.GenerationRule) *domain.RuleResponse {
	rulesOut := make(map[string]map[string]any, len(rule.Rules))
	for section, raw := range rule.Rules {
		if entries, ok := raw.(map[string]any); ok {
			rulesOut[section] = entries
		}
	}
	return &domain.RuleResponse{
		ID:        rule.ID.String(),
		CompanyID: rule.CompanyID.String(),
		Key:       rule.Key,
		Rules:     rulesOut,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

func sortedRefs(entries map[string]any) []string {
	refs := make([]string, 0, len(entries))
	for ref := range entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
