package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONBStringArray source %T", value)
	}

	return json.Unmarshal(bytes, a)
}

// SideEffectReport is the persisted outcome of one completed analysis. Rows are append-only.
type SideEffectReport struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	GroupNames     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"group_names"`
	Description    string           `gorm:"size:2000" json:"description"`
	AnalysisResult string           `gorm:"type:text" json:"analysis_result"`
}

func (SideEffectReport) TableName() string {
	return "side_effect_reports"
}

// BeforeCreate assigns an ID when the caller did not
func (r *SideEffectReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
