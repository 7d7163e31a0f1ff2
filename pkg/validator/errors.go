package validator

import "strings"

// FieldError is one failed rule, translated for the caller.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors 一次校验产生的全部字段错误。
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error joins the translated messages.
func (v *ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(v.Messages(), "; ")
}

// First returns the first message, empty when there are none.
func (v *ValidationErrors) First() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}
	return v.Errors[0].Message
}

// Messages returns every translated message in field order.
func (v *ValidationErrors) Messages() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.Errors))
	for _, fe := range v.Errors {
		out = append(out, fe.Message)
	}
	return out
}

// Message 将 gin 绑定错误转换为面向客户端的一句话，lang 可直接传入
// Accept-Language 头。非校验错误（JSON 语法错误、类型不符）返回其原文。
func Message(err error, lang string) string {
	if err == nil {
		return ""
	}
	return Global().Translate(err, normalizeLang(lang)).First()
}

// normalizeLang reduces "zh-CN,zh;q=0.9" to "zh".
func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_,;"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}
