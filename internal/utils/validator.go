// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/verdict-cms/internal/models"
)

var (
	validate  *validator.Validate
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("verdict", validateVerdict)
	validate.RegisterValidation("product_status", validateProductStatus)
	validate.RegisterValidation("retailer_type", validateRetailerType)
	validate.RegisterValidation("confirmation_level", validateConfirmationLevel)
	validate.RegisterValidation("display_mode", validateDisplayMode)
	validate.RegisterValidation("detection_type", validateDetectionType)
	validate.RegisterValidation("slug", validateSlug)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateVerdict(fl validator.FieldLevel) bool {
	return models.Verdict(fl.Field().String()).Valid()
}

func validateProductStatus(fl validator.FieldLevel) bool {
	return models.ProductStatus(fl.Field().String()).Valid()
}

func validateRetailerType(fl validator.FieldLevel) bool {
	return models.RetailerType(fl.Field().String()).Valid()
}

func validateConfirmationLevel(fl validator.FieldLevel) bool {
	return models.ConfirmationLevel(fl.Field().String()).Valid()
}

func validateDisplayMode(fl validator.FieldLevel) bool {
	return models.DisplayMode(fl.Field().String()).Valid()
}

func validateDetectionType(fl validator.FieldLevel) bool {
	return models.DetectionType(fl.Field().String()).Valid()
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "verdict":
		return e.Field() + " must be one of recommend, caution, flagged"
	case "product_status":
		return e.Field() + " must be one of ai_draft, draft, testing, writing, review, published"
	case "retailer_type":
		return e.Field() + " is not a known retailer type"
	case "confirmation_level":
		return e.Field() + " must be one of screening, confirmed, quantified"
	case "display_mode":
		return e.Field() + " must be one of primary, low_confidence, hidden"
	case "detection_type":
		return e.Field() + " must be one of standard, fragrance_component, hidden_contaminant"
	case "slug":
		return e.Field() + " must contain only lowercase letters, numbers and dashes"
	default:
		return e.Field() + " is invalid"
	}
}
