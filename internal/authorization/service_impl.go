package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectQuote               = "quote"
	ObjectPriceProfile        = "price_profile"
	ObjectLaborRate           = "labor_rate"
	ObjectMaterial            = "material"
	ObjectProjectRequirements = "project_requirements"
	ObjectGenerationRule      = "generation_rule"
	ObjectTuning              = "tuning"
	ObjectUser                = "user"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionQuoteSend   = "quote.send"
	ActionQuoteExport = "quote.export"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, companyID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, companyID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("company:%s", companyID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("company_id", companyID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}

	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, companyID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedCompanyID, err := snowflake.ParseString(companyID)
		if err != nil || parsedCompanyID == 0 {
			return "", "", ErrInvalidCompany
		}
		role, err := s.roleForUser(ctx, parsedCompanyID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, companyID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM users
		 WHERE id = ? AND company_id = ?
		 LIMIT 1`,
		userID,
		companyID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Sales works quotes and intake end to end, reads the catalog.
		{"role:sales", ObjectQuote, ActionView},
		{"role:sales", ObjectQuote, ActionCreate},
		{"role:sales", ObjectQuote, ActionUpdate},
		{"role:sales", ObjectQuote, ActionDelete},
		{"role:sales", ObjectQuote, ActionQuoteSend},
		{"role:sales", ObjectQuote, ActionQuoteExport},
		{"role:sales", ObjectProjectRequirements, ActionView},
		{"role:sales", ObjectProjectRequirements, ActionCreate},
		{"role:sales", ObjectProjectRequirements, ActionUpdate},
		{"role:sales", ObjectProjectRequirements, ActionDelete},
		{"role:sales", ObjectPriceProfile, ActionView},
		{"role:sales", ObjectLaborRate, ActionView},
		{"role:sales", ObjectMaterial, ActionView},
		{"role:sales", ObjectGenerationRule, ActionView},
		{"role:sales", ObjectTuning, ActionView},

		// Admin additionally manages the pricing catalog, generation
		// rules, tuning and staff accounts.
		{"role:admin", ObjectQuote, ActionView},
		{"role:admin", ObjectQuote, ActionCreate},
		{"role:admin", ObjectQuote, ActionUpdate},
		{"role:admin", ObjectQuote, ActionDelete},
		{"role:admin", ObjectQuote, ActionQuoteSend},
		{"role:admin", ObjectQuote, ActionQuoteExport},
		{"role:admin", ObjectProjectRequirements, ActionView},
		{"role:admin", ObjectProjectRequirements, ActionCreate},
		{"role:admin", ObjectProjectRequirements, ActionUpdate},
		{"role:admin", ObjectProjectRequirements, ActionDelete},
		{"role:admin", ObjectPriceProfile, ActionView},
		{"role:admin", ObjectPriceProfile, ActionCreate},
		{"role:admin", ObjectPriceProfile, ActionUpdate},
		{"role:admin", ObjectPriceProfile, ActionDelete},
		{"role:admin", ObjectLaborRate, ActionView},
		{"role:admin", ObjectLaborRate, ActionCreate},
		{"role:admin", ObjectLaborRate, ActionUpdate},
		{"role:admin", ObjectLaborRate, ActionDelete},
		{"role:admin", ObjectMaterial, ActionView},
		{"role:admin", ObjectMaterial, ActionCreate},
		{"role:admin", ObjectMaterial, ActionUpdate},
		{"role:admin", ObjectMaterial, ActionDelete},
		{"role:admin", ObjectGenerationRule, ActionView},
		{"role:admin", ObjectGenerationRule, ActionCreate},
		{"role:admin", ObjectGenerationRule, ActionUpdate},
		{"role:admin", ObjectGenerationRule, ActionDelete},
		{"role:admin", ObjectTuning, ActionView},
		{"role:admin", ObjectTuning, ActionUpdate},
		{"role:admin", ObjectUser, ActionView},
		{"role:admin", ObjectUser, ActionCreate},
	}

	// Automated processes (seed, schedulers) act with the admin set.
	systemPolicies := make([][]string, 0, len(policies))
	for _, policy := range policies {
		if policy[0] != "role:admin" {
			continue
		}
		systemPolicies = append(systemPolicies, []string{"role:system", policy[1], policy[2]})
	}
	policies = append(policies, systemPolicies...)

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
