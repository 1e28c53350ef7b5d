// Package validate runs the client-side checks that must pass before a form
// is sent to the backend. A failure is an *apperror.AppError of kind
// ErrValidation with Status 0: no request was issued.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/apperror"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	decimalGTZeroTag = "dgt0"
	notBlankTag      = "notblank"
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated through their string form
	Validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = Validate.RegisterValidation(decimalGTZeroTag, decimalGTZero)
	_ = Validate.RegisterValidation(notBlankTag, notBlank)

	registerCustomTranslations(decimalGTZeroTag, notBlankTag)
}

func registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case decimalGTZeroTag:
		return fe.Field() + " must be greater than 0"
	case notBlankTag:
		return fe.Field() + " is required"
	}
	return fe.Error()
}

func decimalGTZero(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

func notBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && strings.TrimSpace(s) != ""
}

// Struct validates v by its validate tags and returns the first failure as
// a client-side validation error.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.ValidationFailed(fe.Field(), fe.Translate(Translator))
	}
	return apperror.ValidationFailed("", err.Error())
}

// Fields returns every failure keyed by JSON field name, for forms that
// highlight all bad inputs at once. It returns nil when v is valid.
func Fields(v any) map[string]string {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Translate(Translator)
		}
		return out
	}
	out[""] = err.Error()
	return out
}
