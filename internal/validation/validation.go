package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field limits shared by the request parsers and the stored schema.
const (
	MinAge        = 8
	MaxAge        = 100
	MinAboutLen   = 5
	MaxAboutLen   = 150
	MaxSkills     = 5
	MaxPhotoURLen = 100
)

// Messages reported to callers when a field check fails.
const (
	MsgInvalidEmail    = "Invalid Email."
	MsgInvalidName     = "Invalid Name"
	MsgInvalidUsername = "Invalid username."
	MsgInvalidPassword = "Password should be between 8 and 100 characters."
	MsgInvalidPhone    = "Invalid phone number."
	MsgInvalidGender   = "Gender should be one of male, female or other."
	MsgInvalidAge      = "Invalid Age."
	MsgInvalidPhotoURL = "Invalid photo url."
	MsgInvalidAbout    = "About me should be between 5 and 150 characters."
	MsgTooManySkills   = "Cannot add more than 5 skills."
)

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Zà-ÿÀ-Ÿ' \-]{2,30}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._]{2,28}[a-zA-Z0-9]$`)
	usernameRepeat  = regexp.MustCompile(`[_.]{2}`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9\s\-]{7,20}$`)
	photoURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?[a-zA-Z0-9\-]+(\.[a-zA-Z]{2,})(/[^\s]*)?$`)
)

var std = New()

// New returns a validator with the profile tags registered:
// personname, username, phone and photourl. Field names in errors
// are taken from the json tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return ValidName(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	mustRegister(v, "photourl", func(fl validator.FieldLevel) bool {
		return ValidPhotoURL(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidEmail reports whether s is a well formed email address.
func ValidEmail(s string) bool {
	return std.Var(s, "required,email") == nil
}

// ValidName accepts 2 to 30 letters (accented Latin included),
// apostrophes, hyphens and spaces.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// ValidUsername accepts 4 to 30 characters that start and end with a letter
// or digit, with dots and underscores inside but never two of them in a row.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s) && !usernameRepeat.MatchString(s)
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

func ValidAge(age int) bool {
	return age >= MinAge && age <= MaxAge
}

// ValidPhotoURL accepts an optional http(s) scheme and www prefix, a single
// label domain with a TLD of two or more letters, and an optional path.
func ValidPhotoURL(s string) bool {
	return photoURLPattern.MatchString(s)
}

func ValidAbout(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinAboutLen && n <= MaxAboutLen && !strings.ContainsAny(s, "\r\n")
}

func ValidSkills(skills []string) bool {
	return len(skills) <= MaxSkills
}

// Struct runs the tag based checks on v with the shared validator.
func Struct(v any) error {
	return std.Struct(v)
}

// Error reports the first field that failed a check.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Fail builds an Error for field with its standard message.
func Fail(field string) *Error {
	return &Error{Field: field, Message: MessageFor(field)}
}

// MessageFor returns the caller facing message for a failed field.
func MessageFor(field string) string {
	switch field {
	case "email":
		return MsgInvalidEmail
	case "firstName", "lastName":
		return MsgInvalidName
	case "username":
		return MsgInvalidUsername
	case "password":
		return MsgInvalidPassword
	case "phone":
		return MsgInvalidPhone
	case "gender":
		return MsgInvalidGender
	case "age":
		return MsgInvalidAge
	case "photoUrl":
		return MsgInvalidPhotoURL
	case "about":
		return MsgInvalidAbout
	case "skills":
		return MsgTooManySkills
	}
	return fmt.Sprintf("Invalid %s.", field)
}

// Describe converts a validator error into an Error for the first failing
// field. Errors of any other type are returned with their own text.
func Describe(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Message: err.Error()}
	}
	fe := verrs[0]
	return Fail(fe.Field())
}
