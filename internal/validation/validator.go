package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

// Violation is a single field-qualified constraint failure,
// e.g. {"field": "emails[0].email", "message": "..."}
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PayloadError carries all violations of one payload. It is raised
// before any storage interaction and maps to a 400 on the wire
type PayloadError struct {
	violations []Violation
}

func (e *PayloadError) Error() string {
	buff := bytes.NewBufferString("")

	for _, v := range e.violations {
		buff.WriteString(fmt.Sprintf("%s: %s", v.Field, v.Message))
		buff.WriteString("\n")
	}

	return buff.String()
}

// Violation appends violation to error
func (e *PayloadError) Violation(v Violation) {
	e.violations = append(e.violations, v)
}

// Violations returns accumulated violations
func (e *PayloadError) Violations() []Violation {
	return e.violations
}

func (e *PayloadError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Errors []Violation `json:"errors"`
	}{
		Errors: e.violations,
	})
}

// NewPayloadError builds PayloadError from ready violations
func NewPayloadError(violations ...Violation) *PayloadError {
	return &PayloadError{violations: violations}
}

// Validator validates aggregates and request payloads against their
// declarative constraints, rendering json-tag qualified field paths
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds Validator with english translations
func New() (*Validator, error) {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	translator, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, errors.New("failed to find english translator")
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("failed to register default translations - %w", err)
	}

	return &Validator{validate: validate, translator: translator}, nil
}

// ValidateStruct runs declared constraints, returning *PayloadError
// with one violation per failed field or nil when payload is valid
func (v *Validator) ValidateStruct(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return v.payloadError(ve)
	}

	return err
}

func (v *Validator) payloadError(ve validator.ValidationErrors) error {
	pldErr := &PayloadError{violations: make([]Violation, 0, len(ve))}
	for _, e := range ve {
		pldErr.Violation(Violation{
			Field:   fieldPath(e.Namespace()),
			Message: e.Translate(v.translator),
		})
	}
	return pldErr
}

// fieldPath strips the leading struct name from validator namespace,
// so "Customer.emails[0].email" becomes "emails[0].email"
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// EchoValidator adapts Validator to echo binding
type EchoValidator struct {
	validator *Validator
}

// Echo builds echo-compatible validator
func Echo(validator *Validator) *EchoValidator {
	return &EchoValidator{validator: validator}
}

// Validate implements echo.Validator
func (v *EchoValidator) Validate(i any) error {
	err := v.validator.ValidateStruct(i)
	if err == nil {
		return nil
	}

	var pldErr *PayloadError
	if errors.As(err, &pldErr) {
		return pldErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
