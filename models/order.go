package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Order types (printing technologies)
const (
	OrderTypeFDM = "FDM"
	OrderTypeSLA = "SLA"
)

// OrderDetail carries the printing configuration for an order. The base
// fields apply to both technologies; the FDM and SLA extras are populated
// according to the order type. Stored as a JSON column.
type OrderDetail struct {
	Material    string  `json:"material"`
	Brand       string  `json:"brand"`
	Color       string  `json:"color"`
	LayerHeight float64 `json:"layer_height"`
	Infill      int     `json:"infill"`

	// FDM extras
	BottomTexture string  `json:"bottom_texture,omitempty"`
	NozzleSize    float64 `json:"nozzle_size,omitempty"`

	// SLA extras
	ResinType string `json:"resin_type,omitempty"`
	UVCuring  string `json:"uv_curing,omitempty"`
}

// Value implements driver.Valuer for JSON storage
func (d OrderDetail) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSON storage
func (d *OrderDetail) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// Estimations holds the price/weight figures computed once at order
// creation. They are never recomputed on read.
type Estimations struct {
	EstimatedWeight float64 `json:"estimated_weight"`
	EstimatedCost   float64 `json:"estimated_cost"`
}

// Value implements driver.Valuer for JSON storage
func (e Estimations) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSON storage
func (e *Estimations) Scan(value interface{}) error {
	return scanJSON(value, e)
}

// UintList is a JSON-encoded list of user IDs (rejected manufacturers).
type UintList []uint

// Value implements driver.Valuer for JSON storage
func (l UintList) Value() (driver.Value, error) {
	if l == nil {
		l = UintList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSON storage
func (l *UintList) Scan(value interface{}) error {
	if value == nil {
		*l = UintList{}
		return nil
	}
	return scanJSON(value, l)
}

// Contains reports whether id is present in the list.
func (l UintList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Order represents a 3D-printing order in the system
type Order struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	OrderID string `gorm:"uniqueIndex;not null" json:"order_id"` // opaque caller-facing identity

	CustomerID     uint  `gorm:"not null;index" json:"customer_id"`
	Customer       User  `gorm:"foreignKey:CustomerID" json:"-"`
	ManufacturerID *uint `gorm:"index" json:"manufacturer_id"` // NULL until assigned, set exactly once
	Manufacturer   *User `gorm:"foreignKey:ManufacturerID" json:"-"`

	FileID    string `gorm:"not null" json:"file_id"` // uploaded model in the blob store
	PreviewID string `json:"preview_id"`              // rendered thumbnail, may be empty

	OrderType   string      `gorm:"not null" json:"order_type"` // "FDM" or "SLA"
	OrderDetail OrderDetail `gorm:"type:json" json:"order_detail"`
	Notes       string      `gorm:"type:text" json:"notes"`
	Quantity    int         `gorm:"not null;check:quantity > 0" json:"quantity"`

	Estimations Estimations `gorm:"type:json" json:"estimations"`
	TimingTable TimingTable `gorm:"type:json" json:"order_timing_table"`

	IsCancelled           bool     `gorm:"not null;default:false" json:"is_cancelled"`
	RejectedManufacturers UintList `gorm:"type:json" json:"rejected_manufacturers,omitempty"`

	// Finalization fields, populated at the ready_to_take transition.
	// The product image may be uploaded at any phase once assigned.
	ManufacturerNotes      string     `gorm:"type:text" json:"manufacturer_notes,omitempty"`
	DeliveryAddress        string     `json:"delivery_address,omitempty"`
	ActualFilamentUsage    *float64   `json:"actual_filament_usage,omitempty"`
	FinalPrice             *float64   `json:"final_price,omitempty"`
	ProductFileID          string     `json:"product_file_id,omitempty"`
	ProductImageUploadedAt *time.Time `json:"product_image_uploaded_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ShortID returns the first 8 characters of the order ID for display.
func (o Order) ShortID() string {
	if len(o.OrderID) < 8 {
		return o.OrderID
	}
	return o.OrderID[:8]
}

// IsAssigned reports whether a manufacturer has claimed the order.
func (o Order) IsAssigned() bool {
	return o.ManufacturerID != nil
}

// AssignedTo reports whether the order is assigned to the given manufacturer.
func (o Order) AssignedTo(userID uint) bool {
	return o.ManufacturerID != nil && *o.ManufacturerID == userID
}

// CurrentStep returns the order's 1-based lifecycle step and status label,
// derived solely from timing-table phase presence.
func (o Order) CurrentStep() (int, string) {
	return o.TimingTable.CurrentStep()
}

// scanJSON decodes a JSON column value ([]byte or string) into dst.
func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T as JSON", value)
	}
}
