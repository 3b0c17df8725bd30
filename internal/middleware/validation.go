package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/agilpa/solicitation-api/internal/model"
)

// RegisterValidators hooks domain checks into gin's binding engine so
// malformed enums fail at bind time with a field-level message.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("requesttype", func(fl validator.FieldLevel) bool {
		switch model.RequestType(fl.Field().String()) {
		case model.RequestTypeFundsSupply,
			model.RequestTypeTravelAllowance,
			model.RequestTypeTicket,
			model.RequestTypeAllowanceAndTicket,
			model.RequestTypeReimbursement,
			model.RequestTypeAccountability:
			return true
		}
		return false
	})

	v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return model.Department(fl.Field().String()).Valid()
	})
}
