package handler

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of a 422 response body.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report json tag names instead of Go field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}

func validationDetails(err error) []FieldError {
	var (
		validationErrs validator.ValidationErrors
		syntaxErr      *json.SyntaxError
		typeErr        *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &validationErrs):
		details := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, fieldError(fe))
		}
		return details
	case errors.Is(err, io.EOF):
		return []FieldError{{Loc: []string{"body"}, Msg: "Field required", Type: "missing"}}
	case errors.As(err, &typeErr):
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return []FieldError{{Loc: loc, Msg: "Input should be a valid " + typeName(typeErr.Type), Type: typeName(typeErr.Type) + "_type"}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []FieldError{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}}
	default:
		return []FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}
}

func fieldError(fe validator.FieldError) FieldError {
	loc := []string{"body", fe.Field()}
	switch fe.Tag() {
	case "required":
		return FieldError{Loc: loc, Msg: "Field required", Type: "missing"}
	case "email":
		return FieldError{Loc: loc, Msg: "value is not a valid email address", Type: "value_error"}
	default:
		return FieldError{Loc: loc, Msg: "failed on the '" + fe.Tag() + "' rule", Type: "value_error"}
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "dictionary"
	case reflect.Slice, reflect.Array:
		return "list"
	default:
		return "value"
	}
}
