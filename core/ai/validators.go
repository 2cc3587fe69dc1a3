package ai

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

var (
	chatRoleTag  = "chatrole"
	chatRoleText = "role must be user, assistant or system"

	providerTag  = "aiprovider"
	providerText = "unsupported provider"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(chatRoleTag, func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case RoleUser, RoleAssistant, RoleSystem:
			return true
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, chatRoleTag, chatRoleText)

	_ = validate.RegisterValidation(providerTag, func(fl validator.FieldLevel) bool {
		return isProvider(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, providerTag, providerText)
}

func isProvider(p string) bool {
	for _, prov := range Providers {
		if p == prov {
			return true
		}
	}
	return false
}
