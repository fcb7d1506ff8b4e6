package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/agrofund/loan-service/internal/amortization"
	"github.com/agrofund/loan-service/internal/models"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag     = "notblank"
	installmentsTag = "installments"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is returned when a payload fails validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func init() {
	validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, _ validator.FieldError) string { return "this field cannot be blank" },
	)

	validate.RegisterStructValidation(planInputValidation, models.PlanInput{})
	_ = validate.RegisterTranslation(installmentsTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, _ validator.FieldError) string {
			return fmt.Sprintf("duration must cover between 1 and %d payments at the chosen frequency", amortization.MaxInstallments)
		},
	)
}

// Struct validates s against its `validate` tags and returns *Error on failure.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(fe), Error: fe.Translate(translator)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &Error{Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace,
// "PlanInput.duration.value" becomes "duration.value".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// planInputValidation rejects plans whose duration yields no installment or
// more than amortization.MaxInstallments of them.
func planInputValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(models.PlanInput)
	count, err := amortization.PaymentCount(in.Duration, in.PaymentFrequency)
	if err != nil {
		// unknown unit or frequency, already reported by the field tags
		return
	}
	if count < 1 || count > amortization.MaxInstallments {
		sl.ReportError(in.Duration, "duration", "Duration", installmentsTag, "")
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
