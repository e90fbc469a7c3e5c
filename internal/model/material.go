package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Material represents a stocked item in the catalog
type Material struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MaterialCode string         `gorm:"type:varchar(100)" json:"material_code,omitempty"`
	Barcode      *string        `gorm:"type:varchar(100);uniqueIndex" json:"barcode,omitempty"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Category     string         `gorm:"type:varchar(100)" json:"category"`
	Unit         string         `gorm:"type:varchar(50)" json:"unit"`
	InitialStock int            `gorm:"type:int;default:0;not null" json:"initial_stock"`
	CurrentStock int            `gorm:"type:int;default:0;not null" json:"current_stock"`
	MinStock     int            `gorm:"type:int;default:0;not null" json:"min_stock"`
	Price        float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	Location     string         `gorm:"type:varchar(255)" json:"location,omitempty"`
	Note         string         `gorm:"type:text" json:"note,omitempty"`
	ExpiryDate   *time.Time     `json:"expiry_date,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsLowStock reports whether current stock has reached the reorder threshold
func (m *Material) IsLowStock() bool {
	return m.CurrentStock <= m.MinStock
}

// TransactionType Enum Simulation
const (
	TxTypeIn  = "in"
	TxTypeOut = "out"
)

// StockTransaction records a single stock movement against a Material.
// Immutable once created; its only side effect is the stock adjustment.
type StockTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MaterialID      uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	Material        Material  `gorm:"foreignKey:MaterialID" json:"-"`
	Type            string    `gorm:"type:varchar(10);not null" json:"type"` // in, out
	Quantity        int       `gorm:"type:int;not null" json:"quantity"`
	StockAfter      int       `gorm:"type:int;not null" json:"stock_after"`
	TransactionDate time.Time `gorm:"not null" json:"transaction_date"`
	ReferenceNumber string    `gorm:"type:varchar(100)" json:"reference_number,omitempty"`
	Note            string    `gorm:"type:text" json:"note,omitempty"`
	UserName        string    `gorm:"type:varchar(255)" json:"user_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
