package programs

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
)

const (
	MinRequiredStamps = 1
	MaxRequiredStamps = 30

	maxNameLen              = 80
	maxRewardDescriptionLen = 200
	maxWelcomeMessageLen    = 280
	maxTermsLen             = 2000
	maxLogoURLLen           = 2048
)

// Field names as they appear in request bodies and error details.
const (
	FieldBusinessName      = "business_name"
	FieldBusinessCategory  = "business_category"
	FieldName              = "name"
	FieldRequiredStamps    = "required_stamps"
	FieldRewardDescription = "reward_description"
	FieldRewardValue       = "reward_value"
	FieldPrimaryColor      = "primary_color"
	FieldSecondaryColor    = "secondary_color"
	FieldTextColor         = "text_color"
	FieldSealShape         = "seal_shape"
	FieldBackgroundPattern = "background_pattern"
	FieldLogoURL           = "logo_url"
	FieldWelcomeMessage    = "welcome_message"
	FieldTerms             = "terms"
)

var (
	validate       = validator.New()
	maxRewardValue = decimal.NewFromInt(1_000_000)
)

// FieldError is one rejected field with a human-readable reason.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func ValidateBusinessName(v string) error {
	return checkVar(FieldBusinessName, strings.TrimSpace(v), fmt.Sprintf("required,max=%d", maxNameLen))
}

func ValidateBusinessCategory(v enums.BusinessCategory) error {
	if !v.IsValid() {
		return &FieldError{Field: FieldBusinessCategory, Reason: "is not a supported category"}
	}
	return nil
}

func ValidateProgramName(v string) error {
	return checkVar(FieldName, strings.TrimSpace(v), fmt.Sprintf("required,max=%d", maxNameLen))
}

func ValidateRequiredStamps(v int) error {
	return checkVar(FieldRequiredStamps, v, fmt.Sprintf("min=%d,max=%d", MinRequiredStamps, MaxRequiredStamps))
}

func ValidateRewardDescription(v string) error {
	return checkVar(FieldRewardDescription, strings.TrimSpace(v), fmt.Sprintf("required,max=%d", maxRewardDescriptionLen))
}

// ValidateRewardValue accepts nil (no declared value) or a non-negative
// amount with at most two decimal places.
func ValidateRewardValue(v *decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() || v.GreaterThan(maxRewardValue) {
		return &FieldError{Field: FieldRewardValue, Reason: "must be between 0 and " + maxRewardValue.String()}
	}
	if !v.Equal(v.Round(2)) {
		return &FieldError{Field: FieldRewardValue, Reason: "must have at most two decimal places"}
	}
	return nil
}

// ValidateColor requires a six digit hex color such as #1A237E.
func ValidateColor(field, v string) error {
	return checkVar(field, strings.TrimSpace(v), "required,len=7,hexcolor")
}

func ValidateSealShape(v enums.SealShape) error {
	if !v.IsValid() {
		return &FieldError{Field: FieldSealShape, Reason: "is not a supported shape"}
	}
	return nil
}

func ValidateBackgroundPattern(v enums.BackgroundPattern) error {
	if !v.IsValid() {
		return &FieldError{Field: FieldBackgroundPattern, Reason: "is not a supported pattern"}
	}
	return nil
}

func ValidateLogoURL(v *string) error {
	if v == nil {
		return nil
	}
	return checkVar(FieldLogoURL, strings.TrimSpace(*v), fmt.Sprintf("omitempty,max=%d,http_url", maxLogoURLLen))
}

func ValidateWelcomeMessage(v *string) error {
	if v == nil {
		return nil
	}
	return checkVar(FieldWelcomeMessage, strings.TrimSpace(*v), fmt.Sprintf("max=%d", maxWelcomeMessageLen))
}

func ValidateTerms(v *string) error {
	if v == nil {
		return nil
	}
	return checkVar(FieldTerms, strings.TrimSpace(*v), fmt.Sprintf("max=%d", maxTermsLen))
}

func checkVar(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	reason := "is invalid"
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		reason = reasonFor(errs[0])
	}
	return &FieldError{Field: field, Reason: reason}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len", "hexcolor":
		return "must be a hex color like #1A237E"
	case "http_url":
		return "must be an http(s) URL"
	}
	return "is invalid"
}

// validationError folds field errors into the API error shape.
func validationError(errs []error) error {
	details := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		if fe, ok := err.(*FieldError); ok {
			details[fe.Field] = fe.Reason
			continue
		}
		details["_"] = err.Error()
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid program").WithDetails(details)
}
