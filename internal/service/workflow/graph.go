package workflow

import (
	"github.com/agilpa/solicitation-api/internal/model"
)

// Each request type walks its own subgraph of the department pipeline.
// Edges are listed explicitly; anything not listed is illegal. REJECTED
// is reachable from every analysis/signature state and loops back to
// the recorded return target on resubmission, so it is not listed here.
var pipelines = map[model.RequestType][]model.SolicitationStatus{
	model.RequestTypeFundsSupply: {
		model.StatusWaitingManager,
		model.StatusWaitingSosfuAnalysis,
		model.StatusWaitingAjsefinAnalysis,
		model.StatusWaitingSosfuExecution,
		model.StatusWaitingSefinSignature,
		model.StatusWaitingSosfuPayment,
		model.StatusWaitingPayment,
		model.StatusPaid,
		model.StatusWaitingAccountability,
		model.StatusArchived,
	},
	model.RequestTypeTravelAllowance: {
		model.StatusWaitingManager,
		model.StatusWaitingSodpaAnalysis,
		model.StatusWaitingSodpaCalc,
		model.StatusWaitingSefinSignature,
		model.StatusWaitingPayment,
		model.StatusPaid,
		model.StatusTripInProgress,
		model.StatusArchived,
	},
	// TICKET skips the payment/accountability stages a funds supply
	// requires; the ticket is issued directly after signature.
	model.RequestTypeTicket: {
		model.StatusWaitingManager,
		model.StatusWaitingSodpaAnalysis,
		model.StatusWaitingSodpaCalc,
		model.StatusWaitingPassageIssue,
		model.StatusWaitingSefinSignature,
		model.StatusTripInProgress,
		model.StatusArchived,
	},
	model.RequestTypeAllowanceAndTicket: {
		model.StatusWaitingManager,
		model.StatusWaitingSodpaAnalysis,
		model.StatusWaitingSodpaCalc,
		model.StatusWaitingPassageIssue,
		model.StatusWaitingSefinSignature,
		model.StatusWaitingPayment,
		model.StatusPaid,
		model.StatusTripInProgress,
		model.StatusArchived,
	},
	model.RequestTypeReimbursement: {
		model.StatusWaitingManager,
		model.StatusWaitingRessarcimentoAnalysis,
		model.StatusWaitingRessarcimentoExecution,
		model.StatusWaitingSefinSignature,
		model.StatusWaitingPayment,
		model.StatusPaid,
		model.StatusArchived,
	},
	model.RequestTypeAccountability: {
		model.StatusWaitingSosfuAnalysis,
		model.StatusWaitingAjsefinAnalysis,
		model.StatusWaitingSefinSignature,
		model.StatusArchived,
	},
}

// analysisStates are the states a rejection may return to and reject
// from; signature states are rejectable too.
var rejectableStates = map[model.SolicitationStatus]bool{
	model.StatusWaitingManager:                true,
	model.StatusWaitingSosfuAnalysis:          true,
	model.StatusWaitingAjsefinAnalysis:        true,
	model.StatusWaitingSosfuExecution:         true,
	model.StatusWaitingSefinSignature:         true,
	model.StatusWaitingSodpaAnalysis:          true,
	model.StatusWaitingSodpaCalc:              true,
	model.StatusWaitingPassageIssue:           true,
	model.StatusWaitingRessarcimentoAnalysis:  true,
	model.StatusWaitingRessarcimentoExecution: true,
}

// signatureGated marks the states a solicitation may not leave while
// any of its signing tasks remain unsigned.
var signatureGated = map[model.SolicitationStatus]bool{
	model.StatusWaitingSefinSignature: true,
}

// archivableStates are the payment-terminal states Archive accepts.
var archivableStates = map[model.SolicitationStatus]bool{
	model.StatusWaitingPayment:        true,
	model.StatusPaid:                  true,
	model.StatusWaitingAccountability: true,
	model.StatusTripInProgress:        true,
}

// standardDocuments maps the stage a solicitation leaves to the
// documents SEFIN signs on its way through. Portaria, Certidão and NE
// go out with the execution hand-off; DL and OB with the payment one.
var standardDocuments = map[model.SolicitationStatus][]model.DocumentType{
	model.StatusWaitingSosfuExecution: {
		model.DocumentPortariaSF,
		model.DocumentCertidaoRegularidade,
		model.DocumentNotaEmpenho,
	},
	model.StatusWaitingSodpaCalc: {
		model.DocumentPortariaSF,
		model.DocumentNotaEmpenho,
	},
	model.StatusWaitingPassageIssue: {
		model.DocumentNotaEmpenho,
	},
	model.StatusWaitingRessarcimentoExecution: {
		model.DocumentNotaEmpenho,
		model.DocumentLiquidacao,
	},
	model.StatusWaitingSosfuPayment: {
		model.DocumentLiquidacao,
		model.DocumentOrdemBancaria,
	},
}

// Successor reports whether target directly follows current in the
// pipeline for the given request type.
func Successor(rt model.RequestType, current, target model.SolicitationStatus) bool {
	pipeline, ok := pipelines[rt]
	if !ok {
		return false
	}
	for i := 0; i < len(pipeline)-1; i++ {
		if pipeline[i] == current {
			return pipeline[i+1] == target
		}
	}
	return false
}

// InitialStatus returns the first pipeline state for a request type.
func InitialStatus(rt model.RequestType) (model.SolicitationStatus, bool) {
	pipeline, ok := pipelines[rt]
	if !ok || len(pipeline) == 0 {
		return "", false
	}
	return pipeline[0], true
}

// ReturnTarget resolves where a rejection sends the solicitation back
// to: the nearest preceding analysis state, or the pipeline start.
func ReturnTarget(rt model.RequestType, current model.SolicitationStatus) model.SolicitationStatus {
	pipeline, ok := pipelines[rt]
	if !ok || len(pipeline) == 0 {
		return current
	}
	idx := -1
	for i, st := range pipeline {
		if st == current {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if rejectableStates[pipeline[i]] && !signatureGated[pipeline[i]] {
			return pipeline[i]
		}
	}
	return pipeline[0]
}

// Rejectable reports whether a solicitation in the given state may be
// rejected.
func Rejectable(s model.SolicitationStatus) bool {
	return rejectableStates[s]
}

// SignatureGated reports whether leaving the given state requires every
// signing task to be signed.
func SignatureGated(s model.SolicitationStatus) bool {
	return signatureGated[s]
}

// Archivable reports whether Archive is legal from the given state.
func Archivable(s model.SolicitationStatus) bool {
	return archivableStates[s]
}

// DocumentsFor returns the signing documents to open when leaving the
// given stage towards signature.
func DocumentsFor(from model.SolicitationStatus) []model.DocumentType {
	return standardDocuments[from]
}

// Pipeline exposes the ordered states for a request type; used by
// dashboards to render the tracker.
func Pipeline(rt model.RequestType) []model.SolicitationStatus {
	pipeline := pipelines[rt]
	out := make([]model.SolicitationStatus, len(pipeline))
	copy(out, pipeline)
	return out
}
