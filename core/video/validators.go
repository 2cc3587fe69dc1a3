package video

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

var (
	videoStatusTag  = "videostatus"
	videoStatusText = "invalid status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(videoStatusTag, func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, s := range Statuses {
			if status == s {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, videoStatusTag, videoStatusText)
}
