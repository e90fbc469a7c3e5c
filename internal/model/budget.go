package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetRequest status constants
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// Approval decision constants
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// BudgetRequest is a request to spend against an account code, subject to a
// single terminal approval decision. Created PENDING; transitions exactly once.
type BudgetRequest struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNo   string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"request_no"`
	Requester   string              `gorm:"type:varchar(255);not null" json:"requester"`
	RequestDate time.Time           `gorm:"not null" json:"request_date"`
	AccountCode string              `gorm:"type:varchar(50);not null" json:"account_code"`
	AccountName string              `gorm:"type:varchar(255)" json:"account_name"`
	Amount      decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"amount"`
	Note        string              `gorm:"type:text" json:"note,omitempty"`
	Items       []BudgetRequestItem `gorm:"foreignKey:RequestID" json:"items"`
	Status      string              `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// BudgetRequestItem is one line entry of a budget request
type BudgetRequestItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Item      string    `gorm:"type:varchar(255);not null" json:"item"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
}

// Approval is an append-only decision record attached to a BudgetRequest.
// The first (and in practice only) entry fixes the request's terminal status.
type Approval struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID    uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Decision     string    `gorm:"type:varchar(10);not null" json:"decision"` // APPROVE, REJECT
	ApproverName string    `gorm:"type:varchar(255)" json:"approver_name,omitempty"`
	Remark       string    `gorm:"type:text" json:"remark,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
