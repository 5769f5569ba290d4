package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestErrorMessage returns an operator-friendly message for a request
// binding error.
func RequestErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	for _, ve := range verrs {
		switch ve.Field() {
		case "Quality":
			return "Quality must be one of low, medium, high or enhanced"
		case "Intensity":
			return "Intensity must be between 0.5 and 2.0"
		case "Count":
			return "Count must be between 1 and 10"
		case "VoicePersonaID":
			return "Select a voice persona"
		case "ScriptIDs":
			return "Select at least one script"
		case "TTSProvider":
			return "Unknown TTS provider"
		case "Style":
			return "Video style must be slideshow, animated_text or product_showcase"
		case "Price", "OriginalPrice":
			return ve.Field() + " must be greater than zero"
		}
		switch ve.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fieldLabel(ve.Field()))
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", fieldLabel(ve.Field()), ve.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", fieldLabel(ve.Field()), ve.Param())
		case "oneof":
			return fmt.Sprintf("%s must be one of %s", fieldLabel(ve.Field()), ve.Param())
		}
	}
	return "Invalid request"
}

// fieldLabel turns a Go field name into words: "ProductID" -> "Product ID".
func fieldLabel(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if i > 0 && upper {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
