// Package validation provides integrity and plausibility checks for bridge frames and decoded telemetry.
package validation

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shibida/go-dtu/internal/protocol"
)

// ValidationLevel defines the strictness of validation rules.
type ValidationLevel int

const (
	ValidationLevelBasic ValidationLevel = iota
	ValidationLevelStandard
	ValidationLevelStrict
	ValidationLevelParanoid
)

// String returns the string representation of the validation level.
func (vl ValidationLevel) String() string {
	switch vl {
	case ValidationLevelBasic:
		return "basic"
	case ValidationLevelStandard:
		return "standard"
	case ValidationLevelStrict:
		return "strict"
	case ValidationLevelParanoid:
		return "paranoid"
	default:
		return "unknown"
	}
}

// ValidationError represents a validation error with severity and context.
type ValidationError struct {
	Type     string
	Severity string
	Message  string
	Field    string
	Value    interface{}
	Context  map[string]interface{}
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s validation error in %s: %s", ve.Severity, ve.Field, ve.Message)
}

// ValidationResult contains the result of a validation check.
type ValidationResult struct {
	Valid      bool
	Errors     []*ValidationError
	Warnings   []*ValidationError
	Confidence float64 // 0.0-1.0 confidence in data integrity
}

// HasCriticalErrors returns true if there are any critical validation errors.
func (vr *ValidationResult) HasCriticalErrors() bool {
	for _, err := range vr.Errors {
		if err.Severity == "critical" || err.Severity == "error" {
			return true
		}
	}
	return false
}

// HasWarnings returns true if there are any validation warnings.
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Summary returns a summary of the validation result.
func (vr *ValidationResult) Summary() string {
	if vr.Valid && !vr.HasWarnings() {
		return fmt.Sprintf("Valid (confidence: %.2f)", vr.Confidence)
	}

	var parts []string
	if !vr.Valid {
		parts = append(parts, fmt.Sprintf("%d errors", len(vr.Errors)))
	}
	if vr.HasWarnings() {
		parts = append(parts, fmt.Sprintf("%d warnings", len(vr.Warnings)))
	}

	return fmt.Sprintf("%s (confidence: %.2f)", strings.Join(parts, ", "), vr.Confidence)
}

// FrameRule defines a validation rule for raw bridge frames.
type FrameRule struct {
	Name        string
	Description string
	Command     string
	Level       ValidationLevel
	Check       func(data []byte, metadata map[string]interface{}) *ValidationError
}

// ReadingRule defines a plausibility rule for decoded telemetry values.
type ReadingRule struct {
	Name        string
	Description string
	Field       string
	Level       ValidationLevel
	Check       func(value float64, context map[string]interface{}) *ValidationError
}

// Validator provides frame and telemetry validation.
type Validator struct {
	level        ValidationLevel
	frameRules   map[string][]*FrameRule
	readingRules []*ReadingRule
	logger       zerolog.Logger

	// Statistics
	validationsPerformed int64
	errorsFound          int64
	warningsFound        int64
	corruptionsDetected  int64
}

// NewValidator creates a new validator.
func NewValidator(level ValidationLevel, logger zerolog.Logger) *Validator {
	validator := &Validator{
		level:      level,
		frameRules: make(map[string][]*FrameRule),
		logger:     logger.With().Str("component", "validator").Logger(),
	}

	// Register default rules
	validator.registerDefaultFrameRules()
	validator.registerDefaultReadingRules()

	return validator
}

// ValidateFrame performs validation of a raw frame for the given command label.
func (v *Validator) ValidateFrame(data []byte, command string, metadata map[string]interface{}) *ValidationResult {
	v.validationsPerformed++

	result := &ValidationResult{
		Valid:      true,
		Errors:     make([]*ValidationError, 0),
		Warnings:   make([]*ValidationError, 0),
		Confidence: 1.0,
	}

	// Generic rules apply to every frame.
	for _, rule := range v.frameRules["generic"] {
		if rule.Level <= v.level {
			if err := rule.Check(data, metadata); err != nil {
				v.addValidationError(result, err)
			}
		}
	}

	if command != "generic" {
		for _, rule := range v.frameRules[command] {
			if rule.Level <= v.level {
				if err := rule.Check(data, metadata); err != nil {
					v.addValidationError(result, err)
				}
			}
		}
	}

	v.logger.Debug().
		Str("command", command).
		Int("data_length", len(data)).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Float64("confidence", result.Confidence).
		Msg("Frame validation completed")

	return result
}

// ValidateReadings performs plausibility checks on decoded telemetry values.
func (v *Validator) ValidateReadings(readings map[string]float64, metadata map[string]interface{}) *ValidationResult {
	result := &ValidationResult{
		Valid:      true,
		Errors:     make([]*ValidationError, 0),
		Warnings:   make([]*ValidationError, 0),
		Confidence: 1.0,
	}

	for _, rule := range v.readingRules {
		if rule.Level <= v.level {
			if value, exists := readings[rule.Field]; exists {
				if err := rule.Check(value, metadata); err != nil {
					v.addValidationError(result, err)
				}
			}
		}
	}

	return result
}

// addValidationError adds a validation error to the result and updates metrics.
func (v *Validator) addValidationError(result *ValidationResult, err *ValidationError) {
	if err.Severity == "warning" {
		result.Warnings = append(result.Warnings, err)
		v.warningsFound++
		result.Confidence *= 0.95 // Slight confidence reduction for warnings
	} else {
		result.Errors = append(result.Errors, err)
		v.errorsFound++
		result.Valid = false

		// Reduce confidence based on error severity
		switch err.Severity {
		case "critical":
			result.Confidence *= 0.1
			v.corruptionsDetected++
		case "error":
			result.Confidence *= 0.5
		case "minor":
			result.Confidence *= 0.8
		}
	}
}

// registerDefaultFrameRules registers the built-in frame validation rules.
func (v *Validator) registerDefaultFrameRules() {
	v.frameRules["generic"] = []*FrameRule{
		{
			Name:        "frame_size_check",
			Description: "Validates frame size is within protocol bounds",
			Command:     "generic",
			Level:       ValidationLevelBasic,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) < protocol.FrameMinSize {
					return &ValidationError{
						Type:     "frame",
						Severity: "critical",
						Message:  fmt.Sprintf("frame too short: %d bytes, minimum %d", len(data), protocol.FrameMinSize),
						Field:    "frame_size",
						Value:    len(data),
						Context:  metadata,
					}
				}
				if len(data) > protocol.FrameMinSize+protocol.MaxFramePayload {
					return &ValidationError{
						Type:     "frame",
						Severity: "critical",
						Message:  fmt.Sprintf("frame too large: %d bytes", len(data)),
						Field:    "frame_size",
						Value:    len(data),
						Context:  metadata,
					}
				}
				return nil
			},
		},
		{
			Name:        "start_byte_check",
			Description: "Validates the frame start marker",
			Command:     "generic",
			Level:       ValidationLevelBasic,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) == 0 {
					return nil // Handled by frame_size_check
				}
				if data[0] != protocol.FrameStartByte {
					return &ValidationError{
						Type:     "frame",
						Severity: "critical",
						Message:  fmt.Sprintf("invalid start byte: 0x%02x", data[0]),
						Field:    "frame_header",
						Value:    data[0],
						Context:  metadata,
					}
				}
				return nil
			},
		},
	}

	v.frameRules["statistics"] = []*FrameRule{
		{
			Name:        "statistics_fragment_check",
			Description: "Validates the fragment byte of a statistics frame",
			Command:     "statistics",
			Level:       ValidationLevelStandard,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) < protocol.FrameHeaderSize {
					return nil
				}

				index := int(data[10] & protocol.FragmentIndexMask)
				if index == 0 {
					return &ValidationError{
						Type:     "frame",
						Severity: "error",
						Message:  "statistics fragment index is zero",
						Field:    "fragment",
						Value:    data[10],
						Context:  metadata,
					}
				}

				return nil
			},
		},
		{
			Name:        "statistics_payload_check",
			Description: "Validates that a statistics frame carries data",
			Command:     "statistics",
			Level:       ValidationLevelStandard,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) < protocol.FrameMinSize {
					return nil
				}

				if len(data) == protocol.FrameMinSize {
					return &ValidationError{
						Type:     "frame",
						Severity: "error",
						Message:  "statistics frame has no payload",
						Field:    "payload",
						Value:    0,
						Context:  metadata,
					}
				}

				return nil
			},
		},
		{
			Name:        "statistics_pattern_check",
			Description: "Detects suspicious payload patterns in statistics frames",
			Command:     "statistics",
			Level:       ValidationLevelStrict,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) <= protocol.FrameMinSize {
					return nil
				}

				payload := data[protocol.FrameHeaderSize : len(data)-protocol.FrameTrailerSize]
				if hasUniformPattern(payload, 16) {
					return &ValidationError{
						Type:     "data_integrity",
						Severity: "warning",
						Message:  "detected uniform byte pattern (possible corruption)",
						Field:    "payload",
						Value:    "uniform_pattern",
						Context:  metadata,
					}
				}

				return nil
			},
		},
	}
}

// registerDefaultReadingRules registers the built-in telemetry plausibility rules.
func (v *Validator) registerDefaultReadingRules() {
	v.readingRules = []*ReadingRule{
		{
			Name:        "voltage_range",
			Description: "Validates voltage readings against the channel type",
			Field:       "Voltage",
			Level:       ValidationLevelStandard,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				channelType, _ := context["channel_type"].(string)

				var low, high float64
				switch channelType {
				case "AC":
					low, high = 150, 280
				case "DC":
					low, high = 0, 90
				default:
					return nil
				}

				if value < low || value > high {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "warning",
						Message:  fmt.Sprintf("%s voltage %.1f V outside expected range %.0f-%.0f V", channelType, value, low, high),
						Field:    "Voltage",
						Value:    value,
						Context:  context,
					}
				}
				return nil
			},
		},
		{
			Name:        "frequency_range",
			Description: "Validates grid frequency readings",
			Field:       "Frequency",
			Level:       ValidationLevelStandard,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				if value < 45 || value > 65 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "error",
						Message:  fmt.Sprintf("grid frequency %.2f Hz outside 45-65 Hz", value),
						Field:    "Frequency",
						Value:    value,
						Context:  context,
					}
				}
				return nil
			},
		},
		{
			Name:        "temperature_range",
			Description: "Validates inverter temperature readings",
			Field:       "Temperature",
			Level:       ValidationLevelStandard,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				if value < -40 || value > 90 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "warning",
						Message:  fmt.Sprintf("temperature %.1f °C outside -40-90 °C", value),
						Field:    "Temperature",
						Value:    value,
						Context:  context,
					}
				}
				return nil
			},
		},
		{
			Name:        "power_range",
			Description: "Validates power readings are plausible for microinverters",
			Field:       "Power",
			Level:       ValidationLevelStandard,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				if value < 0 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "warning",
						Message:  "negative power value detected",
						Field:    "Power",
						Value:    value,
						Context:  context,
					}
				}
				if value > 10000 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "warning",
						Message:  "unusually high power value",
						Field:    "Power",
						Value:    value,
						Context:  context,
					}
				}
				return nil
			},
		},
		{
			Name:        "yield_day_range",
			Description: "Validates daily yield readings",
			Field:       "YieldDay",
			Level:       ValidationLevelStandard,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				if value < 0 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "error",
						Message:  "negative daily yield",
						Field:    "YieldDay",
						Value:    value,
						Context:  context,
					}
				}
				if value > 100000 {
					return &ValidationError{
						Type:     "plausibility",
						Severity: "warning",
						Message:  "implausibly high daily yield",
						Field:    "YieldDay",
						Value:    value,
						Context:  context,
					}
				}
				return nil
			},
		},
	}
}

// hasUniformPattern checks if data contains a run of identical bytes.
func hasUniformPattern(data []byte, minRun int) bool {
	if len(data) < minRun {
		return false
	}

	consecutiveCount := 1
	for i := 1; i < len(data); i++ {
		if data[i] == data[i-1] {
			consecutiveCount++
			if consecutiveCount >= minRun {
				return true
			}
		} else {
			consecutiveCount = 1
		}
	}

	return false
}

// GetStatistics returns validation statistics.
func (v *Validator) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"validations_performed": v.validationsPerformed,
		"errors_found":          v.errorsFound,
		"warnings_found":        v.warningsFound,
		"corruptions_detected":  v.corruptionsDetected,
		"validation_level":      v.level.String(),
		"frame_rules":           len(v.frameRules),
		"reading_rules":         len(v.readingRules),
	}
}

// SetValidationLevel changes the validation level.
func (v *Validator) SetValidationLevel(level ValidationLevel) {
	oldLevel := v.level
	v.level = level
	v.logger.Info().
		Str("old_level", oldLevel.String()).
		Str("new_level", level.String()).
		Msg("Validation level changed")
}

// AddFrameRule adds a custom frame validation rule.
func (v *Validator) AddFrameRule(command string, rule *FrameRule) {
	v.frameRules[command] = append(v.frameRules[command], rule)

	v.logger.Debug().
		Str("command", command).
		Str("rule", rule.Name).
		Msg("Added custom frame rule")
}

// AddReadingRule adds a custom telemetry plausibility rule.
func (v *Validator) AddReadingRule(rule *ReadingRule) {
	v.readingRules = append(v.readingRules, rule)

	v.logger.Debug().
		Str("field", rule.Field).
		Str("rule", rule.Name).
		Msg("Added custom reading rule")
}
