package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/auth"
	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
	authlocal "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/local"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/session"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/authorization"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company"
	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation"
	generationdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/metricspush"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/observability"
	obsmiddleware "github.com/Calle9610/smart-offertgenerator-sub001/internal/observability/logger"
	obsmetrics "github.com/Calle9610/smart-offertgenerator-sub001/internal/observability/metrics"
	obstracing "github.com/Calle9610/smart-offertgenerator-sub001/internal/observability/tracing"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/email"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/pdf"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote"
	publicdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/ratelimit"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
)

var Module = fx.Module("http.server",
	metricspush.Module,
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	authlocal.Module,
	session.Module,
	company.Module,
	email.Module,
	pdf.Module,
	pricing.Module,
	quote.Module,
	publicquote.Module,
	requirements.Module,
	generation.Module,
	tuning.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.PublicBaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	authzSvc        authorization.Service
	companySvc      companydomain.Service
	pricingSvc      pricingdomain.Service
	quoteSvc        quotedomain.Service
	publicQuoteSvc  publicdomain.Service
	requirementsSvc requirementsdomain.Service
	generationSvc   generationdomain.Service
	tuningSvc       tuningdomain.Service
	publicLimiter   *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	AuthzSvc        authorization.Service
	CompanySvc      companydomain.Service
	PricingSvc      pricingdomain.Service
	QuoteSvc        quotedomain.Service
	PublicQuoteSvc  publicdomain.Service
	RequirementsSvc requirementsdomain.Service
	GenerationSvc   generationdomain.Service
	TuningSvc       tuningdomain.Service
	PublicLimiter   *ratelimit.PublicLimiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		authzSvc:        p.AuthzSvc,
		companySvc:      p.CompanySvc,
		pricingSvc:      p.PricingSvc,
		quoteSvc:        p.QuoteSvc,
		publicQuoteSvc:  p.PublicQuoteSvc,
		requirementsSvc: p.RequirementsSvc,
		generationSvc:   p.GenerationSvc,
		tuningSvc:       p.TuningSvc,
		publicLimiter:   p.PublicLimiter,
	}

	svc.registerStaffRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerStaffRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.SessionRequired())

	// -------- Users --------
	v1.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	v1.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)

	// -------- Pricing catalog --------
	v1.GET("/price-profiles", s.authorize(authorization.ObjectPriceProfile, authorization.ActionView), s.ListPriceProfiles)
	v1.POST("/price-profiles", s.authorize(authorization.ObjectPriceProfile, authorization.ActionCreate), s.CreatePriceProfile)
	v1.GET("/price-profiles/:id", s.authorize(authorization.ObjectPriceProfile, authorization.ActionView), s.GetPriceProfile)

	v1.GET("/labor-rates", s.authorize(authorization.ObjectLaborRate, authorization.ActionView), s.ListLaborRates)
	v1.POST("/labor-rates", s.authorize(authorization.ObjectLaborRate, authorization.ActionCreate), s.CreateLaborRate)
	v1.PATCH("/labor-rates/:id", s.authorize(authorization.ObjectLaborRate, authorization.ActionUpdate), s.UpdateLaborRate)
	v1.DELETE("/labor-rates/:id", s.authorize(authorization.ObjectLaborRate, authorization.ActionDelete), s.DeleteLaborRate)

	v1.GET("/materials", s.authorize(authorization.ObjectMaterial, authorization.ActionView), s.ListMaterials)
	v1.POST("/materials", s.authorize(authorization.ObjectMaterial, authorization.ActionCreate), s.CreateMaterial)
	v1.PATCH("/materials/:id", s.authorize(authorization.ObjectMaterial, authorization.ActionUpdate), s.UpdateMaterial)
	v1.DELETE("/materials/:id", s.authorize(authorization.ObjectMaterial, authorization.ActionDelete), s.DeleteMaterial)

	// -------- Quotes --------
	v1.GET("/quotes", s.authorize(authorization.ObjectQuote, authorization.ActionView), s.ListQuotes)
	v1.POST("/quotes", s.authorize(authorization.ObjectQuote, authorization.ActionCreate), s.CreateQuote)
	v1.GET("/quotes/:id", s.authorize(authorization.ObjectQuote, authorization.ActionView), s.GetQuote)
	v1.PUT("/quotes/:id", s.authorize(authorization.ObjectQuote, authorization.ActionUpdate), s.UpdateQuote)
	v1.POST("/quotes/:id/send", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteSend), s.SendQuote)
	v1.GET("/quotes/:id/events", s.authorize(authorization.ObjectQuote, authorization.ActionView), s.ListQuoteEvents)
	v1.POST("/quotes/:id/pdf", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteExport), s.ExportQuotePDF)
	v1.GET("/quotes/:id/adjustments", s.authorize(authorization.ObjectTuning, authorization.ActionView), s.ListQuoteAdjustments)

	// -------- Intake --------
	v1.GET("/project-requirements", s.authorize(authorization.ObjectProjectRequirements, authorization.ActionView), s.ListRequirements)
	v1.POST("/project-requirements", s.authorize(authorization.ObjectProjectRequirements, authorization.ActionCreate), s.CreateRequirements)
	v1.GET("/project-requirements/:id", s.authorize(authorization.ObjectProjectRequirements, authorization.ActionView), s.GetRequirements)
	v1.PATCH("/project-requirements/:id", s.authorize(authorization.ObjectProjectRequirements, authorization.ActionUpdate), s.UpdateRequirements)
	v1.DELETE("/project-requirements/:id", s.authorize(authorization.ObjectProjectRequirements, authorization.ActionDelete), s.DeleteRequirements)

	// -------- Generation --------
	v1.GET("/generation-rules", s.authorize(authorization.ObjectGenerationRule, authorization.ActionView), s.ListGenerationRules)
	v1.POST("/generation-rules", s.authorize(authorization.ObjectGenerationRule, authorization.ActionCreate), s.CreateGenerationRule)
	v1.GET("/generation-rules/:id", s.authorize(authorization.ObjectGenerationRule, authorization.ActionView), s.GetGenerationRule)
	v1.PATCH("/generation-rules/:id", s.authorize(authorization.ObjectGenerationRule, authorization.ActionUpdate), s.UpdateGenerationRule)
	v1.DELETE("/generation-rules/:id", s.authorize(authorization.ObjectGenerationRule, authorization.ActionDelete), s.DeleteGenerationRule)
	v1.POST("/quotes/auto-generate", s.authorize(authorization.ObjectQuote, authorization.ActionCreate), s.AutoGenerateQuote)

	// -------- Tuning --------
	v1.GET("/auto-tuning/insights/:ruleKey", s.authorize(authorization.ObjectTuning, authorization.ActionView), s.GetTuningInsights)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/quotes/:token", s.GetPublicQuote)
	public.POST("/quotes/:token/update-selection", s.UpdatePublicSelection)
	public.POST("/quotes/:token/accept", s.AcceptPublicQuote)
	public.POST("/quotes/:token/decline", s.DeclinePublicQuote)
}
