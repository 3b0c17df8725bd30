package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DocumentType string

const (
	DocumentPortariaSF           DocumentType = "PORTARIA_SF"
	DocumentCertidaoRegularidade DocumentType = "CERTIDAO_REGULARIDADE"
	DocumentNotaEmpenho          DocumentType = "NOTA_EMPENHO"
	DocumentLiquidacao           DocumentType = "LIQUIDACAO"
	DocumentOrdemBancaria        DocumentType = "ORDEM_BANCARIA"
)

type SigningTaskStatus string

const (
	SigningTaskPending  SigningTaskStatus = "PENDING"
	SigningTaskSigned   SigningTaskStatus = "SIGNED"
	SigningTaskRejected SigningTaskStatus = "REJECTED"
	// SUPERSEDED marks a rejected task whose document got a replacement
	// task after rework; it no longer counts against the signature gate.
	SigningTaskSuperseded SigningTaskStatus = "SUPERSEDED"
)

// SigningTask is one document requiring an individual signature before
// its solicitation may leave a signature-gated stage.
type SigningTask struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	SolicitationID uuid.UUID         `db:"solicitation_id" json:"solicitation_id"`
	DocumentType   DocumentType      `db:"document_type" json:"document_type"`
	Title          string            `db:"title" json:"title"`
	Status         SigningTaskStatus `db:"status" json:"status"`
	Value          decimal.Decimal   `db:"value" json:"value"`
	SignedBy       *uuid.UUID        `db:"signed_by" json:"signed_by,omitempty"`
	SignedAt       *time.Time        `db:"signed_at" json:"signed_at,omitempty"`
	RejectReason   *string           `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}
