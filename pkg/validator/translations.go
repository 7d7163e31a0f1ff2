package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// registerCustomTranslations registers translations for custom validation rules.
func (v *Validator) registerCustomTranslations() {
	if enTrans := v.GetTranslator(LangEN); enTrans != nil {
		registerTranslations(v.validate, enTrans, map[string]string{
			TagNotBlank: "{0} must not be blank",
			TagTrimmed:  "{0} must not have leading or trailing spaces",
		})
	}

	if zhTrans := v.GetTranslator(LangZH); zhTrans != nil {
		registerTranslations(v.validate, zhTrans, map[string]string{
			TagNotBlank: "{0}不能为空白",
			TagTrimmed:  "{0}不能有前导或尾随空格",
		})
	}
}

func registerTranslations(validate *validator.Validate, trans ut.Translator, messages map[string]string) {
	for tag, message := range messages {
		tag, message := tag, message
		_ = validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			},
		)
	}
}
