package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
)

// LegacyImportRollup is one per-source monthly import count from before
// event-level logging existed. The table is retained for historical
// dashboards only; nothing in this service writes to it.
type LegacyImportRollup struct {
	shared.BaseEntity
	OwnerID     uuid.UUID
	Source      string
	PeriodStart time.Time
	Count       int64
}
