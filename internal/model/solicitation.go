package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RequestType string

const (
	RequestTypeFundsSupply        RequestType = "FUNDS_SUPPLY"
	RequestTypeTravelAllowance    RequestType = "TRAVEL_ALLOWANCE"
	RequestTypeTicket             RequestType = "TICKET"
	RequestTypeAllowanceAndTicket RequestType = "BOTH_ALLOWANCE_AND_TICKET"
	RequestTypeReimbursement      RequestType = "REIMBURSEMENT"
	RequestTypeAccountability     RequestType = "ACCOUNTABILITY"
)

type SolicitationStatus string

const (
	StatusWaitingManager                SolicitationStatus = "WAITING_MANAGER"
	StatusWaitingSosfuAnalysis          SolicitationStatus = "WAITING_SOSFU_ANALYSIS"
	StatusWaitingAjsefinAnalysis        SolicitationStatus = "WAITING_AJSEFIN_ANALYSIS"
	StatusWaitingSosfuExecution         SolicitationStatus = "WAITING_SOSFU_EXECUTION"
	StatusWaitingSefinSignature         SolicitationStatus = "WAITING_SEFIN_SIGNATURE"
	StatusWaitingSodpaAnalysis          SolicitationStatus = "WAITING_SODPA_ANALYSIS"
	StatusWaitingSodpaCalc              SolicitationStatus = "WAITING_SODPA_CALC"
	StatusWaitingPassageIssue           SolicitationStatus = "WAITING_PASSAGE_ISSUE"
	StatusWaitingRessarcimentoAnalysis  SolicitationStatus = "WAITING_RESSARCIMENTO_ANALYSIS"
	StatusWaitingRessarcimentoExecution SolicitationStatus = "WAITING_RESSARCIMENTO_EXECUTION"
	StatusWaitingSosfuPayment           SolicitationStatus = "WAITING_SOSFU_PAYMENT"
	StatusWaitingPayment                SolicitationStatus = "WAITING_PAYMENT"
	StatusTripInProgress                SolicitationStatus = "TRIP_IN_PROGRESS"
	StatusPaid                          SolicitationStatus = "PAID"
	StatusWaitingAccountability         SolicitationStatus = "WAITING_ACCOUNTABILITY"
	StatusRejected                      SolicitationStatus = "REJECTED"
	StatusArchived                      SolicitationStatus = "ARCHIVED"
)

// Solicitation is a single funds/travel/reimbursement request moving
// through the department pipeline. Status and the signed_* fields are
// written only by the workflow service; Version guards every write.
type Solicitation struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	ProcessNumber string             `db:"process_number" json:"process_number"`
	RequestType   RequestType        `db:"request_type" json:"request_type"`
	OriginUnit    string             `db:"origin_unit" json:"origin_unit"`
	Beneficiary   string             `db:"beneficiary" json:"beneficiary"`
	RequesterID   uuid.UUID          `db:"requester_id" json:"requester_id"`
	Value         decimal.Decimal    `db:"value" json:"value"`
	Status        SolicitationStatus `db:"status" json:"status"`
	ReturnStatus  *SolicitationStatus `db:"return_status" json:"return_status,omitempty"`
	RejectReason  *string            `db:"reject_reason" json:"reject_reason,omitempty"`
	NLSiafe       *string            `db:"nl_siafe" json:"nl_siafe,omitempty"`
	DataBaixa     *time.Time         `db:"data_baixa" json:"data_baixa,omitempty"`
	Version       int64              `db:"version" json:"version"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether no further transitions are possible.
func (s SolicitationStatus) IsTerminal() bool {
	return s == StatusArchived
}

// StatusUpdate carries the fields a single atomic status write may
// change. Terminal fields are only ever set together with ARCHIVED.
type StatusUpdate struct {
	Status       SolicitationStatus
	ReturnStatus *SolicitationStatus
	RejectReason *string
	NLSiafe      *string
	DataBaixa    *time.Time
}

type CreateSolicitationRequest struct {
	RequestType RequestType     `json:"request_type" binding:"required,requesttype"`
	OriginUnit  string          `json:"origin_unit" binding:"required"`
	Beneficiary string          `json:"beneficiary" binding:"required"`
	RequesterID uuid.UUID       `json:"requester_id" binding:"required"`
	Value       decimal.Decimal `json:"value"`
}

type TransitionRequest struct {
	Target SolicitationStatus `json:"target" binding:"required"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ArchiveRequest struct {
	NLSiafe   string    `json:"nl_siafe" binding:"required"`
	DataBaixa time.Time `json:"data_baixa" binding:"required"`
}

type SolicitationFilters struct {
	Statuses    []SolicitationStatus
	RequestType RequestType
	RequesterID uuid.UUID
	Search      string
	Limit       int
	Offset      int
}
