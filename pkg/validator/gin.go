package validator

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// ginValidator adapts Validator to gin's binding.StructValidator.
type ginValidator struct {
	v *Validator
}

// InstallGin makes gin's ShouldBind* use the global validator, custom rules included.
func InstallGin() {
	binding.Validator = &ginValidator{v: Global()}
}

// ValidateStruct validates structs and pointers to structs, ignoring everything else.
func (g *ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return g.v.Validate(obj)
}

// Engine returns the underlying validator engine.
func (g *ginValidator) Engine() any {
	return g.v.Engine()
}
