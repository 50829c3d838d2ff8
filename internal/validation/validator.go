package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

var (
	emailRegexp        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	licensePlateRegexp = regexp.MustCompile(`^[A-Z]{2}-[0-9]{3}-[A-Z]{2}$`)
)

// Validator holds the rule sets of the console. It is safe for concurrent
// use once built.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
	location   *time.Location
}

// New builds a Validator. loc decides which calendar day "today" is.
func New(loc *time.Location) (*Validator, error) {
	if loc == nil {
		loc = time.UTC
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"notblank": validators.NotBlank,
		"emailfmt": func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		},
		"plate": func(fl validator.FieldLevel) bool {
			return ValidLicensePlate(fl.Field().String())
		},
		"isodate": func(fl validator.FieldLevel) bool {
			_, err := domain.ParseDate(fl.Field().String())
			return err == nil
		},
		"password": func(fl validator.FieldLevel) bool {
			return ValidPassword(fl.Field().String())
		},
	}
	for tag, fn := range custom {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, err
		}
	}

	french := fr.New()
	uni := ut.New(french, french)
	trans, _ := uni.GetTranslator("fr")
	if err := fr_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Validator{
		validate:   validate,
		translator: trans,
		location:   loc,
	}, nil
}

func ValidEmail(email string) bool {
	return email != "" && emailRegexp.MatchString(email)
}

// ValidLicensePlate accepts the French SIV format, case-insensitively.
func ValidLicensePlate(plate string) bool {
	return plate != "" && licensePlateRegexp.MatchString(strings.ToUpper(plate))
}

// ValidPassword requires 8 characters with an upper case letter, a lower
// case letter and a digit.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// Location is the zone used for day-granularity comparisons.
func (v *Validator) Location() *time.Location {
	return v.location
}

// structInto runs the struct tags of s and folds the failures into errs.
func (v *Validator) structInto(errs domain.FieldErrors, s any) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_", err.Error())
		return
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), v.message(fe.Field(), fe))
	}
}

// varInto checks a single value against tag and records the first failure
// under field.
func (v *Validator) varInto(errs domain.FieldErrors, field string, value any, tag string) {
	err := v.validate.Var(value, tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		errs.Add(field, err.Error())
		return
	}
	errs.Add(field, v.message(field, verrs[0]))
}

func (v *Validator) message(field string, fe validator.FieldError) string {
	if msg, ok := messages[field+"|"+fe.Tag()]; ok {
		return msg
	}
	return fe.Translate(v.translator)
}
