// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormProfileCountProvider implements ProfileCountProvider using GORM.
// It queries the quota_profiles table directly for aggregated counts.
type GormProfileCountProvider struct {
	db *gorm.DB
}

// NewGormProfileCountProvider creates a new GormProfileCountProvider.
func NewGormProfileCountProvider(db *gorm.DB) *GormProfileCountProvider {
	return &GormProfileCountProvider{db: db}
}

// CountProfilesByPlan returns the number of quota profiles per plan tier.
func (p *GormProfileCountProvider) CountProfilesByPlan(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Plan  string `gorm:"column:plan"`
		Count int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("quota_profiles").
		Select("plan, COUNT(*) as count").
		Group("plan").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Plan] = r.Count
	}

	return m, nil
}
