package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertProfile(ctx context.Context, db *gorm.DB, profile *PriceProfile) error
	FindProfileByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*PriceProfile, error)
	FindDefaultProfile(ctx context.Context, db *gorm.DB, companyID int64) (*PriceProfile, error)
	ListProfiles(ctx context.Context, db *gorm.DB, companyID int64) ([]PriceProfile, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, profile *PriceProfile) error

	InsertLaborRate(ctx context.Context, db *gorm.DB, rate *LaborRate) error
	FindLaborRateByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*LaborRate, error)
	FindLaborRateByCode(ctx context.Context, db *gorm.DB, companyID int64, code string) (*LaborRate, error)
	ListLaborRates(ctx context.Context, db *gorm.DB, companyID int64, filter ListFilter) ([]LaborRate, error)
	UpdateLaborRate(ctx context.Context, db *gorm.DB, rate *LaborRate) error
	DeleteLaborRate(ctx context.Context, db *gorm.DB, companyID, id int64) error

	InsertMaterial(ctx context.Context, db *gorm.DB, material *Material) error
	FindMaterialByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*Material, error)
	FindMaterialBySKU(ctx context.Context, db *gorm.DB, companyID int64, sku string) (*Material, error)
	ListMaterials(ctx context.Context, db *gorm.DB, companyID int64, filter ListFilter) ([]Material, error)
	UpdateMaterial(ctx context.Context, db *gorm.DB, material *Material) error
	DeleteMaterial(ctx context.Context, db *gorm.DB, companyID, id int64) error
}
