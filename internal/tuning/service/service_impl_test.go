package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/repository"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.QuoteAdjustmentLog{},
		&domain.TuningStat{},
		&domain.AutoTuningPattern{},
		&requirementsdomain.ProjectRequirements{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Pricing: config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		Repo:    repository.Provide(),
	})
	return svc, db
}

func companyContext(id int64) context.Context {
	ctx := companyctx.WithCompanyID(context.Background(), snowflake.ID(id))
	return companyctx.WithUser(ctx, snowflake.ID(id*100), "admin")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedIntake(t *testing.T, db *gorm.DB, companyID, quoteID int64, room requirementsdomain.RoomType, finish requirementsdomain.FinishLevel) {
	t.Helper()

	qid := snowflake.ID(quoteID)
	row := requirementsdomain.ProjectRequirements{
		ID:          snowflake.ID(quoteID + 500000),
		CompanyID:   snowflake.ID(companyID),
		QuoteID:     &qid,
		RoomType:    room,
		AreaM2:      dec("12.5"),
		FinishLevel: finish,
		Data:        datatypes.JSON([]byte(`{}`)),
	}
	require.NoError(t, db.Create(&row).Error)
}

func adjustment(companyID, quoteID int64, itemRef, origQty, adjQty string) domain.LogAdjustmentRequest {
	return domain.LogAdjustmentRequest{
		QuoteID:           snowflake.ID(quoteID),
		CompanyID:         snowflake.ID(companyID),
		UserID:            snowflake.ID(companyID * 100),
		ItemRef:           itemRef,
		ItemKind:          "labor",
		OriginalQty:       dec(origQty),
		AdjustedQty:       dec(adjQty),
		OriginalUnitPrice: dec("325.00"),
		AdjustedUnitPrice: dec("325.00"),
	}
}

func findStat(t *testing.T, db *gorm.DB, companyID int64, key, itemRef string) *domain.TuningStat {
	t.Helper()

	var stat domain.TuningStat
	err := db.Where("company_id = ? AND key = ? AND item_ref = ?", companyID, key, itemRef).
		Limit(1).
		Find(&stat).Error
	require.NoError(t, err)
	if stat.CompanyID == 0 {
		return nil
	}
	return &stat
}

func findPattern(t *testing.T, db *gorm.DB, companyID int64, patternKey string) *domain.AutoTuningPattern {
	t.Helper()

	var pattern domain.AutoTuningPattern
	err := db.Where("company_id = ? AND pattern_key = ?", companyID, patternKey).
		Limit(1).
		Find(&pattern).Error
	require.NoError(t, err)
	if pattern.ID == 0 {
		return nil
	}
	return &pattern
}

func TestLogAdjustmentBuildsStatAndPattern(t *testing.T) {
	svc, db := newTestService(t)
	seedIntake(t, db, 100, 1001, requirementsdomain.RoomTypeBathroom, requirementsdomain.FinishLevelStandard)

	err := svc.LogAdjustment(context.Background(), adjustment(100, 1001, "SNICK", "10.00", "11.00"))
	require.NoError(t, err)

	stat := findStat(t, db, 100, "bathroom|standard", "SNICK")
	require.NotNil(t, stat)
	assert.True(t, stat.MedianFactor.Equal(dec("1.1")), "median factor = %s", stat.MedianFactor)
	assert.Equal(t, 1, stat.N)

	pattern := findPattern(t, db, 100, "bathroom|standard|SNICK")
	require.NotNil(t, pattern)
	assert.True(t, pattern.AdjustmentFactor.Equal(dec("1.1")), "factor = %s", pattern.AdjustmentFactor)
	assert.True(t, pattern.ConfidenceScore.Equal(dec("0.7")), "confidence = %s", pattern.ConfidenceScore)
	assert.Equal(t, 1, pattern.SampleCount)

	logs, err := svc.ListAdjustments(companyContext(100), "1001")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "SNICK", logs[0].ItemRef)
	assert.Equal(t, "labor", logs[0].ItemKind)
	assert.True(t, logs[0].OriginalQty.Equal(dec("10.00")))
	assert.True(t, logs[0].AdjustedQty.Equal(dec("11.00")))
}

func TestLogAdjustmentWithoutIntakeOnlyLogs(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.LogAdjustment(context.Background(), adjustment(101, 1011, "SNICK", "10.00", "12.00"))
	require.NoError(t, err)

	logs, err := svc.ListAdjustments(companyContext(101), "1011")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	var statCount int64
	require.NoError(t, db.Model(&domain.TuningStat{}).Where("company_id = ?", 101).Count(&statCount).Error)
	assert.Zero(t, statCount)

	var patternCount int64
	require.NoError(t, db.Model(&domain.AutoTuningPattern{}).Where("company_id = ?", 101).Count(&patternCount).Error)
	assert.Zero(t, patternCount)

	other, err := svc.ListAdjustments(companyContext(999), "1011")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStatClampsFactorsAndTakesMedian(t *testing.T) {
	svc, db := newTestService(t)
	seedIntake(t, db, 102, 1021, requirementsdomain.RoomTypeKitchen, requirementsdomain.FinishLevelPremium)
	ctx := context.Background()

	// 30/10 = 3.0 clamps to 1.2, 2/10 = 0.2 clamps to 0.8.
	require.NoError(t, svc.LogAdjustment(ctx, adjustment(102, 1021, "EL", "10.00", "30.00")))
	require.NoError(t, svc.LogAdjustment(ctx, adjustment(102, 1021, "EL", "10.00", "2.00")))

	stat := findStat(t, db, 102, "kitchen|premium", "EL")
	require.NotNil(t, stat)
	assert.True(t, stat.MedianFactor.Equal(dec("1.0")), "median factor = %s", stat.MedianFactor)
	assert.Equal(t, 2, stat.N)

	require.NoError(t, svc.LogAdjustment(ctx, adjustment(102, 1021, "EL", "10.00", "10.50")))

	stat = findStat(t, db, 102, "kitchen|premium", "EL")
	require.NotNil(t, stat)
	assert.True(t, stat.MedianFactor.Equal(dec("1.05")), "median factor = %s", stat.MedianFactor)
	assert.Equal(t, 3, stat.N)

	// A zero original quantity cannot produce a factor and stays out of
	// the window.
	require.NoError(t, svc.LogAdjustment(ctx, adjustment(102, 1021, "EL", "0.00", "5.00")))

	stat = findStat(t, db, 102, "kitchen|premium", "EL")
	require.NotNil(t, stat)
	assert.Equal(t, 3, stat.N)
}

func TestPatternWeightedAverageAndConfidence(t *testing.T) {
	svc, db := newTestService(t)
	seedIntake(t, db, 103, 1031, requirementsdomain.RoomTypeBathroom, requirementsdomain.FinishLevelPremium)
	ctx := context.Background()
	patternKey := "bathroom|premium|VVS"

	require.NoError(t, svc.LogAdjustment(ctx, adjustment(103, 1031, "VVS", "10.00", "12.00")))

	pattern := findPattern(t, db, 103, patternKey)
	require.NotNil(t, pattern)
	assert.True(t, pattern.AdjustmentFactor.Equal(dec("1.2")))
	assert.True(t, pattern.ConfidenceScore.Equal(dec("0.7")))
	assert.Equal(t, 1, pattern.SampleCount)

	// Raw factor 1.5 is not clamped here: (1.2 + 1.5) / 2 = 1.35.
	require.NoError(t, svc.LogAdjustment(ctx, adjustment(103, 1031, "VVS", "10.00", "15.00")))

	pattern = findPattern(t, db, 103, patternKey)
	require.NotNil(t, pattern)
	assert.True(t, pattern.AdjustmentFactor.Equal(dec("1.35")), "factor = %s", pattern.AdjustmentFactor)
	assert.True(t, pattern.ConfidenceScore.Equal(dec("0.75")))
	assert.Equal(t, 2, pattern.SampleCount)

	// (1.35*2 + 0.9) / 3 = 1.2.
	require.NoError(t, svc.LogAdjustment(ctx, adjustment(103, 1031, "VVS", "10.00", "9.00")))

	pattern = findPattern(t, db, 103, patternKey)
	require.NotNil(t, pattern)
	assert.True(t, pattern.AdjustmentFactor.Equal(dec("1.2")), "factor = %s", pattern.AdjustmentFactor)
	assert.True(t, pattern.ConfidenceScore.Equal(dec("0.8")))
	assert.Equal(t, 3, pattern.SampleCount)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.LogAdjustment(ctx, adjustment(103, 1031, "VVS", "10.00", "10.00")))
	}

	pattern = findPattern(t, db, 103, patternKey)
	require.NotNil(t, pattern)
	assert.True(t, pattern.ConfidenceScore.Equal(dec("0.95")), "confidence capped, got %s", pattern.ConfidenceScore)
	assert.Equal(t, 8, pattern.SampleCount)
}

func TestInsightsInterpretsFactors(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	stats := []domain.TuningStat{
		{CompanyID: 104, Key: "bathroom|standard", ItemRef: "SNICK", MedianFactor: dec("1.2"), N: 12, UpdatedAt: now},
		{CompanyID: 104, Key: "bathroom|standard", ItemRef: "VVS", MedianFactor: dec("0.85"), N: 6, UpdatedAt: now},
		{CompanyID: 104, Key: "bathroom|standard", ItemRef: "EL", MedianFactor: dec("1.05"), N: 2, UpdatedAt: now},
		{CompanyID: 104, Key: "kitchen|premium", ItemRef: "SNICK", MedianFactor: dec("1.5"), N: 20, UpdatedAt: now},
	}
	for i := range stats {
		require.NoError(t, db.Create(&stats[i]).Error)
	}

	resp, err := svc.Insights(companyContext(104), "bathroom|standard")
	require.NoError(t, err)
	assert.Equal(t, "bathroom|standard", resp.RuleKey)
	assert.Equal(t, 3, resp.TotalItems)
	assert.Equal(t, 1, resp.HighConfidenceItems)
	assert.Equal(t, 1, resp.MediumConfidenceItems)
	assert.Equal(t, 1, resp.LowConfidenceItems)
	require.Len(t, resp.Items, 3)

	byRef := map[string]domain.InsightItem{}
	for _, item := range resp.Items {
		byRef[item.ItemRef] = item
	}

	snick := byRef["SNICK"]
	assert.Equal(t, "high", snick.Confidence)
	assert.Equal(t, "Användare justerar vanligtvis till högre kvantitet (20%) med hög tillförlitlighet", snick.Interpretation)

	vvs := byRef["VVS"]
	assert.Equal(t, "medium", vvs.Confidence)
	assert.Equal(t, "Användare justerar vanligtvis till lägre kvantitet (15%) med medel tillförlitlighet", vvs.Interpretation)

	el := byRef["EL"]
	assert.Equal(t, "low", el.Confidence)
	assert.Equal(t, "Användare justerar vanligtvis till ungefär samma kvantitet (±10%) med låg tillförlitlighet", el.Interpretation)
	require.NotNil(t, el.LastUpdated)

	empty, err := svc.Insights(companyContext(104), "flooring|basic")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalItems)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)

	_, err = svc.Insights(companyContext(104), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidRuleKey)

	_, err = svc.Insights(context.Background(), "bathroom|standard")
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestConfidentFactorThreshold(t *testing.T) {
	svc, db := newTestService(t)
	seedIntake(t, db, 105, 1051, requirementsdomain.RoomTypeFlooring, requirementsdomain.FinishLevelBasic)
	ctx := context.Background()

	require.NoError(t, svc.LogAdjustment(ctx, adjustment(105, 1051, "GOLV", "10.00", "11.50")))

	applied, err := svc.ConfidentFactor(ctx, snowflake.ID(105), "flooring|basic|GOLV")
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.True(t, applied.Factor.Equal(dec("1.15")), "factor = %s", applied.Factor)
	assert.True(t, applied.Confidence.Equal(dec("0.7")))

	// Confidence exactly at the threshold does not apply.
	now := time.Now().UTC()
	require.NoError(t, db.Create(&domain.AutoTuningPattern{
		ID:               snowflake.ID(777001),
		CompanyID:        snowflake.ID(105),
		PatternKey:       "flooring|basic|LOW",
		AdjustmentFactor: dec("1.3"),
		ConfidenceScore:  dec("0.6"),
		SampleCount:      3,
		LastAdjustedAt:   now,
		CreatedAt:        now,
	}).Error)

	applied, err = svc.ConfidentFactor(ctx, snowflake.ID(105), "flooring|basic|LOW")
	require.NoError(t, err)
	assert.Nil(t, applied)

	applied, err = svc.ConfidentFactor(ctx, snowflake.ID(105), "flooring|basic|MISSING")
	require.NoError(t, err)
	assert.Nil(t, applied)

	applied, err = svc.ConfidentFactor(ctx, snowflake.ID(105), "   ")
	require.NoError(t, err)
	assert.Nil(t, applied)

	_, err = svc.ConfidentFactor(ctx, 0, "flooring|basic|GOLV")
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestLogAdjustmentValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := adjustment(106, 1061, "SNICK", "10.00", "11.00")
	req.CompanyID = 0
	assert.ErrorIs(t, svc.LogAdjustment(ctx, req), domain.ErrInvalidCompany)

	req = adjustment(106, 1061, "SNICK", "10.00", "11.00")
	req.QuoteID = 0
	assert.ErrorIs(t, svc.LogAdjustment(ctx, req), domain.ErrInvalidQuote)

	req = adjustment(106, 1061, "   ", "10.00", "11.00")
	assert.ErrorIs(t, svc.LogAdjustment(ctx, req), domain.ErrInvalidItemRef)

	_, err := svc.ListAdjustments(companyContext(106), "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidQuote)

	_, err = svc.ListAdjustments(ctx, "1061")
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}
