package echoapi

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
)

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators registers the custom validators & translations of every domain package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	video.InitValidators(validate, translator)
	report.InitValidators(validate, translator)
	ai.InitValidators(validate, translator)
}
