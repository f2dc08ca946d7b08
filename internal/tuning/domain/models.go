// Package domain contains persistence models for adjustment tuning.
//
// Two learning loops live here. Tuning stats keep a rolling-median
// quantity factor per rule key and item ref, shown to staff as
// insights. Auto-tuning patterns keep a weighted-average factor with a
// confidence score and feed back into quote generation once confident
// enough.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// QuoteAdjustmentLog records one staff edit of a generated quantity.
type QuoteAdjustmentLog struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	QuoteID           snowflake.ID    `gorm:"not null;index"`
	CompanyID         snowflake.ID    `gorm:"not null;index"`
	UserID            snowflake.ID    `gorm:"column:user_id"`
	ItemRef           string          `gorm:"column:item_ref;type:text;not null;index"`
	ItemKind          string          `gorm:"column:item_kind;type:text;not null"`
	OriginalQty       decimal.Decimal `gorm:"column:original_qty;type:numeric(12,2);not null"`
	AdjustedQty       decimal.Decimal `gorm:"column:adjusted_qty;type:numeric(12,2);not null"`
	OriginalUnitPrice decimal.Decimal `gorm:"column:original_unit_price;type:numeric(12,2);not null"`
	AdjustedUnitPrice decimal.Decimal `gorm:"column:adjusted_unit_price;type:numeric(12,2);not null"`
	Reason            *string         `gorm:"column:adjustment_reason;type:text"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (QuoteAdjustmentLog) TableName() string { return "quote_adjustment_logs" }

// TuningStat is the rolling-median factor for one rule key
// ("roomType|finishLevel") and item ref, over the most recent
// adjustments.
type TuningStat struct {
	CompanyID    snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	Key          string          `gorm:"primaryKey;type:text"`
	ItemRef      string          `gorm:"primaryKey;column:item_ref;type:text"`
	MedianFactor decimal.Decimal `gorm:"column:median_factor;type:numeric(8,3);not null;default:1.000"`
	N            int             `gorm:"column:n;not null;default:0"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TuningStat) TableName() string { return "tuning_stats" }

// AutoTuningPattern is the learned factor for one pattern key
// ("roomType|finishLevel|itemRef"). Generation applies it once the
// confidence score passes the configured threshold.
type AutoTuningPattern struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	CompanyID        snowflake.ID    `gorm:"not null;uniqueIndex:ux_tuning_patterns_company_key,priority:1"`
	PatternKey       string          `gorm:"column:pattern_key;type:text;not null;uniqueIndex:ux_tuning_patterns_company_key,priority:2"`
	AdjustmentFactor decimal.Decimal `gorm:"column:adjustment_factor;type:numeric(8,4);not null"`
	ConfidenceScore  decimal.Decimal `gorm:"column:confidence_score;type:numeric(5,4);not null"`
	SampleCount      int             `gorm:"column:sample_count;not null;default:0"`
	LastAdjustedAt   time.Time       `gorm:"column:last_adjusted_at;not null;default:CURRENT_TIMESTAMP"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AutoTuningPattern) TableName() string { return "auto_tuning_patterns" }

// RequirementsKey is the room/finish pair read off a quote's linked
// intake.
type RequirementsKey struct {
	RoomType    string
	FinishLevel string
}

// PatternKey builds the key auto-tuning patterns are stored under.
func PatternKey(roomType, finishLevel, itemRef string) string {
	return roomType + "|" + finishLevel + "|" + itemRef
}

// RuleKey builds the key tuning stats are grouped under.
func RuleKey(roomType, finishLevel string) string {
	return roomType + "|" + finishLevel
}
