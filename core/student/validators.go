package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

var (
	errorTypeTag  = "errortype"
	errorTypeText = "invalid error type"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(errorTypeTag, func(fl validator.FieldLevel) bool {
		typ := fl.Field().String()
		for _, t := range ErrorTypes {
			if typ == t {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, errorTypeTag, errorTypeText)
}
