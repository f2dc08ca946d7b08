// Package domain contains persistence models for generation rules,
// the recipes that turn a project intake into a draft quote.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Rule sections. Labor entries price against labor rate codes,
// material entries against material SKUs.
const (
	SectionLabor     = "labor"
	SectionMaterials = "materials"
)

// GenerationRule maps one room/finish combination to quantity
// expressions per catalog ref. Rules is a two-level map: section to
// ref to either a plain expression string or an object form
// {"qty": "...", "optional": true, "group": "..."} for lines that
// land in an option group.
type GenerationRule struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	CompanyID snowflake.ID      `gorm:"not null;uniqueIndex:ux_generation_rules_company_key,priority:1"`
	Key       string            `gorm:"type:text;not null;uniqueIndex:ux_generation_rules_company_key,priority:2"`
	Rules     datatypes.JSONMap `gorm:"not null"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GenerationRule) TableName() string { return "generation_rules" }
