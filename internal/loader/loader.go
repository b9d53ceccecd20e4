// Package loader decodes forecast results from JSON or YAML and checks
// their shape before they reach the renderer.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/pkg/models"
)

// Format is a result encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported result format")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names (json tags) instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want .json, .yaml or .yml)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads, decodes and validates the result at path.
func LoadFile(path string) (*models.ForecastResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result: %w", err)
	}
	defer f.Close()

	result, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// Decode reads one result from r and validates it.
func Decode(r io.Reader, format Format) (*models.ForecastResult, error) {
	var result models.ForecastResult
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&result); err != nil {
			return nil, fmt.Errorf("%w: decoding json: %v", dashboard.ErrInvalidResult, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&result); err != nil {
			return nil, fmt.Errorf("%w: decoding yaml: %v", dashboard.ErrInvalidResult, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := Validate(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate checks the struct-level shape of a result: ticker, non-empty
// forecast and history, and all three risk metrics present.
func Validate(result *models.ForecastResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", dashboard.ErrInvalidResult)
	}
	err := validate.Struct(result)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", dashboard.ErrInvalidResult, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", dashboard.ErrInvalidResult, err)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ForecastResult.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
