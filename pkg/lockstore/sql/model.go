package sql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonMap adapts map[string]any to a single JSON(B) column via
// database/sql.Scanner/driver.Valuer. No library in the example pack
// targets this narrow a concern (a one-field ad hoc payload column), so
// it is implemented directly against encoding/json rather than pulling in
// a dedicated JSON-column type for a single use site.
type jsonMap map[string]any

// Value implements driver.Valuer.
func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(m))
}

// Scan implements sql.Scanner.
func (m *jsonMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("sql: cannot scan %T into jsonMap", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, (*map[string]any)(m))
}

// lockRow is the GORM row shape of a lockstore.Record.
type lockRow struct {
	LockGroup            string  `gorm:"column:lock_group;primaryKey"`
	LockID               string  `gorm:"column:lock_id;primaryKey"`
	OwnerName            string  `gorm:"column:owner_name"`
	RecordVersionNumber  string  `gorm:"column:record_version_number"`
	LastUpdatedTimeInMs  int64   `gorm:"column:last_updated_time_ms"`
	LeaseDurationInMs    int64   `gorm:"column:lease_duration_ms"`
	AdditionalAttributes jsonMap `gorm:"column:additional_attributes"`
	TTLAt                *int64  `gorm:"column:ttl_at"`
}

// TableName overrides GORM's pluralization so the row maps onto the
// migrated "locks" table regardless of Go naming conventions.
func (lockRow) TableName() string {
	return "locks"
}
