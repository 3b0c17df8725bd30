package model

type Department string

const (
	DepartmentSOSFU         Department = "SOSFU"
	DepartmentAJSEFIN       Department = "AJSEFIN"
	DepartmentSEFIN         Department = "SEFIN"
	DepartmentSODPA         Department = "SODPA"
	DepartmentRessarcimento Department = "RESSARCIMENTO"
	DepartmentSGP           Department = "SGP"
)

// Departments lists every queue owner, in pipeline order.
var Departments = []Department{
	DepartmentSOSFU,
	DepartmentAJSEFIN,
	DepartmentSEFIN,
	DepartmentSODPA,
	DepartmentRessarcimento,
	DepartmentSGP,
}

// StatusOwnership is the explicit department-to-status table: the
// department listed for a status owns the queue items sitting in it.
// Dashboards and the notification fan-out both resolve through here
// rather than matching on status strings.
var StatusOwnership = map[SolicitationStatus]Department{
	StatusWaitingManager:                DepartmentSGP,
	StatusWaitingSosfuAnalysis:          DepartmentSOSFU,
	StatusWaitingSosfuExecution:         DepartmentSOSFU,
	StatusWaitingSosfuPayment:           DepartmentSOSFU,
	StatusWaitingAjsefinAnalysis:        DepartmentAJSEFIN,
	StatusWaitingSefinSignature:         DepartmentSEFIN,
	StatusWaitingPayment:                DepartmentSEFIN,
	StatusWaitingSodpaAnalysis:          DepartmentSODPA,
	StatusWaitingSodpaCalc:              DepartmentSODPA,
	StatusWaitingPassageIssue:           DepartmentSODPA,
	StatusWaitingRessarcimentoAnalysis:  DepartmentRessarcimento,
	StatusWaitingRessarcimentoExecution: DepartmentRessarcimento,
}

// OwnerOf resolves the department whose queue holds the given status.
// Terminal and in-flight states (PAID, TRIP_IN_PROGRESS, ...) have no
// owner.
func OwnerOf(s SolicitationStatus) (Department, bool) {
	d, ok := StatusOwnership[s]
	return d, ok
}

func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}
