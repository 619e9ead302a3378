package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idea is one row of the ideas table. Rows are written exclusively by the
// external workflow engine; this service only reads them.
//
// HasParent groups an idea with its revision history: every row sharing a
// has_parent value is a version of the same idea, and the newest created_at
// row in a group is the group's current representative. Rows with a NULL
// has_parent all fall into a single group.
type Idea struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID       string         `gorm:"column:uuid;index" json:"uuid"`
	FullText   string         `gorm:"column:full_text" json:"full_text"`
	Embedding  []byte         `gorm:"column:embedding" json:"embedding,omitempty"`
	Categories *string        `gorm:"column:categories" json:"categories"`
	Merged     bool           `gorm:"column:merged;not null;default:false" json:"merged"`
	HasParent  *int64         `gorm:"column:has_parent;index" json:"has_parent"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
	Metadata   datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (Idea) TableName() string { return "ideas" }

// Categories is the fixed product vocabulary a submission may be tagged with.
var Categories = []string{
	"Advanced Solutions",
	"Analytics",
	"Carousels",
	"Central Med Automation Service (CMAS)",
	"Central Pharmacy Manager (CPM)",
	"Cloud Hosted OmniCenter (CHOC)",
	"Controlled Substance Manager (CSM)",
	"CP Software",
	"CPBP",
	"Data",
	"Diversion",
	"EMM",
	"Infrastructure Upgrades",
	"IVX Manager",
	"IVX Station",
	"IVX Workflow",
	"OmniCenter",
	"OmniSphere",
	"Packagers",
	"Robot-Rx. ProManager",
	"ServerScale",
	"SupplyXpert",
	"XR2",
	"XT AWS",
	"XT Supply",
	"XT-ADC",
	"XTExtend / XTA-Core",
	"Yuyama",
}
