package services

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline failure markers. Stage code wraps underlying errors with one of
// these so run outcomes can be classified without string matching.
var (
	ErrSelection       = errors.New("selection error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMediaFetch      = errors.New("media fetch error")
	ErrTranslation     = errors.New("translation error")
	ErrSynthesis       = errors.New("synthesis error")
	ErrMix             = errors.New("mix error")
	ErrTransientUpload = errors.New("transient upload error")
	ErrPublish         = errors.New("publish error")

	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var classes = []struct {
	marker error
	name   string
}{
	{ErrSelection, "SelectionError"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrMediaFetch, "MediaFetchError"},
	{ErrTranslation, "TranslationError"},
	{ErrSynthesis, "SynthesisError"},
	{ErrMix, "MixError"},
	{ErrTransientUpload, "TransientUploadError"},
	{ErrPublish, "PublishError"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrTimeout, "Timeout"},
	{ErrNotFound, "NotFound"},
	{ErrExternalTool, "ExternalToolError"},
}

// Classify maps an error onto its taxonomy name. Errors that carry no marker
// report "Unknown"; nil reports "".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, class := range classes {
		if errors.Is(err, class.marker) {
			return class.name
		}
	}
	return "Unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
