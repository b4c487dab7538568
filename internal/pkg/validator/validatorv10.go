package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/coincraze/authd/internal/pkg/strcase"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordLength = 72

var ErrTranslatorNotFound = errors.New("translator not found")

type Option func(*V10Validator)

// WithPasswordMinLength sets the lower bound of the "password" rule. Values
// outside 1..72 are ignored.
func WithPasswordMinLength(n int) Option {
	return func(v *V10Validator) {
		if n > 0 && n <= maxPasswordLength {
			v.passwordMin = n
		}
	}
}

// WithCamelCaseFields keys field errors as lowerCamel (phoneNumber) rather
// than snake_case.
func WithCamelCaseFields() Option {
	return func(v *V10Validator) { v.fieldName = strcase.ToLowerCamel }
}

type V10Validator struct {
	validate    *validator.Validate
	translator  ut.Translator
	fieldName   func(string) string
	passwordMin int
}

// V10ValidationError maps a field name to its translated message.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}
	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

func (vs V10ValidationError) Values() map[string]string { return vs }

func NewV10Validator(opts ...Option) (*V10Validator, error) {
	v := &V10Validator{
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		fieldName:   strcase.ToLowerSnake,
		passwordMin: 8,
	}
	for _, opt := range opts {
		opt(v)
	}

	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(v.validate, trans); err != nil {
		return nil, err
	}
	v.translator = trans

	for _, r := range v.rules() {
		if err := v.register(r); err != nil {
			return nil, fmt.Errorf("validator: register %q: %w", r.tag, err)
		}
	}
	return v, nil
}

func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[v.fieldName(fe.Field())] = fe.Translate(v.translator)
	}
	return out
}

type rule struct {
	tag string
	msg string
	ok  func(string) bool
}

var (
	otpPattern   = regexp.MustCompile(`^[0-9]{4}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{0,30}$`)
)

func (v *V10Validator) rules() []rule {
	return []rule{
		{
			tag: "password",
			msg: fmt.Sprintf("{0} must be %d-%d characters", v.passwordMin, maxPasswordLength),
			ok:  func(s string) bool { return len(s) >= v.passwordMin && len(s) <= maxPasswordLength },
		},
		{tag: "otp", msg: "{0} must be a 4-digit code", ok: otpPattern.MatchString},
		{tag: "phone", msg: "{0} must be a valid phone number", ok: phonePattern.MatchString},
	}
}

// register installs a string rule together with its English message.
func (v *V10Validator) register(r rule) error {
	err := v.validate.RegisterValidation(r.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && r.ok(s)
	})
	if err != nil {
		return err
	}

	return v.validate.RegisterTranslation(r.tag, v.translator,
		func(t ut.Translator) error { return t.Add(r.tag, r.msg, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("failed to translate field error", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}
