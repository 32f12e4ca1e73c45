package middleware

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "stockpulse/internal/errors"
	"stockpulse/pkg/contracts/domain"
)

// Validator validates request values using struct tags. Besides the
// built-in tags it knows "category" and "filename".
type Validator struct {
	validate     *validator.Validate
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewValidator creates a validator that reports failures through errorHandler
func NewValidator(errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("category", isCategory)
	v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:     v,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "validation")),
	}
}

// Struct validates v and converts failures into an APIError listing every
// offending field
func (m *Validator) Struct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	validationErrors := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(validationErrors)
}

// QueryInt reads an integer query parameter. It writes a 400 response and
// returns false when the value is not an integer in [min, max].
func (m *Validator) QueryInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		m.errorHandler.HandleError(w, r, apperrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}
	if value < min || value > max {
		m.errorHandler.HandleError(w, r, apperrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return value, true
}

// Category parses a category path or form value, writing a 400 response
// when it is unknown
func (m *Validator) Category(w http.ResponseWriter, r *http.Request, field, raw string) (domain.Category, bool) {
	category, err := domain.ParseCategory(raw)
	if err != nil {
		m.logger.DebugContext(r.Context(), "invalid_category", slog.String("value", raw))
		m.errorHandler.HandleError(w, r, apperrors.ErrValidation(field, err.Error()))
		return "", false
	}
	return category, true
}

// ContentTypeValidator rejects request bodies whose media type is not one
// of contentTypes with 415
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeProblem(w, r, http.StatusUnsupportedMediaType, apperrors.TypeUploadFormat,
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type must be one of: %s", strings.Join(contentTypes, ", ")))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "category":
		return fmt.Sprintf("%s must be one of: %s, %s", field, domain.CategoryInventory, domain.CategoryOSR)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isCategory(fl validator.FieldLevel) bool {
	_, err := domain.ParseCategory(fl.Field().String())
	return err == nil
}

// isValidFilename rejects empty names, path separators and traversal
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	return !strings.Contains(filename, "..") &&
		!strings.ContainsAny(filename, `/\`)
}
