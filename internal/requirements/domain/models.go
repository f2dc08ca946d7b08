// Package domain contains persistence models for project requirements,
// the structured intake that drives quote generation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RoomType enumerates the projects the generator knows how to price.
type RoomType string

const (
	RoomTypeBathroom RoomType = "bathroom"
	RoomTypeKitchen  RoomType = "kitchen"
	RoomTypeFlooring RoomType = "flooring"
)

// ValidRoomType reports whether a room type is one of the known kinds.
func ValidRoomType(rt RoomType) bool {
	switch rt {
	case RoomTypeBathroom, RoomTypeKitchen, RoomTypeFlooring:
		return true
	}
	return false
}

// FinishLevel grades the ambition of a project.
type FinishLevel string

const (
	FinishLevelBasic    FinishLevel = "basic"
	FinishLevelStandard FinishLevel = "standard"
	FinishLevelPremium  FinishLevel = "premium"
)

// ValidFinishLevel reports whether a finish level is a known grade.
func ValidFinishLevel(fl FinishLevel) bool {
	switch fl {
	case FinishLevelBasic, FinishLevelStandard, FinishLevelPremium:
		return true
	}
	return false
}

// ProjectRequirements is one intake submission. The typed columns are
// authoritative; Data keeps the submitted payload verbatim so later
// schema changes never lose what the customer actually entered.
type ProjectRequirements struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	CompanyID         snowflake.ID    `gorm:"not null;index"`
	QuoteID           *snowflake.ID   `gorm:"index"`
	RoomType          RoomType        `gorm:"column:room_type;type:text;not null"`
	AreaM2            decimal.Decimal `gorm:"column:area_m2;type:numeric(8,2);not null"`
	FinishLevel       FinishLevel     `gorm:"column:finish_level;type:text;not null"`
	HasPlumbingWork   bool            `gorm:"column:has_plumbing_work;not null;default:false"`
	HasElectricalWork bool            `gorm:"column:has_electrical_work;not null;default:false"`
	MaterialPrefs     pq.StringArray  `gorm:"column:material_prefs;type:text[]"`
	SiteConstraints   pq.StringArray  `gorm:"column:site_constraints;type:text[]"`
	Notes             *string         `gorm:"type:text"`
	Data              datatypes.JSON  `gorm:"type:jsonb;not null"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProjectRequirements) TableName() string { return "project_requirements" }
