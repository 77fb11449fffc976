package models

import (
	"time"

	"github.com/hiredeck/hiredeck/internal/pipeline"
)

// Candidate carries the pipeline status this subsystem keeps consistent.
// The remaining profile fields live with the admin application.
type Candidate struct {
	BaseModel

	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Contact  string `gorm:"type:varchar(255)" json:"contact"`
	Timezone string `gorm:"type:varchar(64)" json:"timezone"`

	Status             pipeline.Status `gorm:"type:varchar(32);not null;default:'lead';index" json:"status"`
	StatusChangedAt    *time.Time      `json:"status_changed_at"`
	StatusChangeReason string          `gorm:"type:text" json:"status_change_reason"`
}
