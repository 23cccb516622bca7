package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Upload limits enforced before a file is forwarded to the backend.
const (
	MaxUploadBytes    = 10 << 20
	PasswordMinLength = 8
)

// ErrInvalidUpload is returned by ValidateUpload for rejected files.
var ErrInvalidUpload = errors.New("invalid upload")

// RegisterForm is the account registration payload.
type RegisterForm struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginForm is the credential login payload.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// InsightRequestForm selects the datasets to generate recommendations for.
type InsightRequestForm struct {
	DatasetIDs []int64 `json:"dataset_ids" validate:"required,min=1,dive,gt=0"`
}

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateForm checks a form struct and returns nil when it is valid.
func ValidateForm(form any) FieldErrors {
	err := formValidator().Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, dup := out[fe.Field()]; dup {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " is invalid"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at least %s", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return label + " is invalid"
	}
}

// fieldLabel turns "first_name" into "First name".
func fieldLabel(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ValidateUpload checks the file name and size of a dataset upload.
func ValidateUpload(filename string, size int64) error {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return fmt.Errorf("%w: only CSV files are supported", ErrInvalidUpload)
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d MB", ErrInvalidUpload, MaxUploadBytes>>20)
	}
	return nil
}
