package report

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

var (
	reportTypeTag  = "reporttype"
	reportTypeText = "reportType must be quarterly or single"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(reportTypeTag, func(fl validator.FieldLevel) bool {
		typ := fl.Field().String()
		return typ == TypeQuarterly || typ == TypeSingle
	})
	core.RegisterCustomTranslation(validate, translator, reportTypeTag, reportTypeText)
}
