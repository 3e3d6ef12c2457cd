package validation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibida/go-dtu/internal/protocol"
)

func TestValidationLevel_String(t *testing.T) {
	tests := []struct {
		level    ValidationLevel
		expected string
	}{
		{ValidationLevelBasic, "basic"},
		{ValidationLevelStandard, "standard"},
		{ValidationLevelStrict, "strict"},
		{ValidationLevelParanoid, "paranoid"},
		{ValidationLevel(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Type:     "frame",
		Severity: "critical",
		Message:  "test error",
		Field:    "test_field",
		Value:    "test_value",
		Context:  map[string]interface{}{"key": "value"},
	}

	assert.Equal(t, "critical validation error in test_field: test error", err.Error())
}

func TestValidationResult(t *testing.T) {
	t.Run("HasCriticalErrors", func(t *testing.T) {
		result := &ValidationResult{
			Errors: []*ValidationError{
				{Severity: "warning"},
				{Severity: "critical"},
			},
		}
		assert.True(t, result.HasCriticalErrors())

		result.Errors = []*ValidationError{{Severity: "warning"}}
		assert.False(t, result.HasCriticalErrors())
	})

	t.Run("HasWarnings", func(t *testing.T) {
		result := &ValidationResult{
			Warnings: []*ValidationError{{Severity: "warning"}},
		}
		assert.True(t, result.HasWarnings())

		result.Warnings = nil
		assert.False(t, result.HasWarnings())
	})

	t.Run("Summary", func(t *testing.T) {
		// Valid with no warnings
		result := &ValidationResult{
			Valid:      true,
			Confidence: 0.95,
		}
		assert.Equal(t, "Valid (confidence: 0.95)", result.Summary())

		// With errors and warnings
		result = &ValidationResult{
			Valid:      false,
			Errors:     []*ValidationError{{}, {}},
			Warnings:   []*ValidationError{{}},
			Confidence: 0.5,
		}
		assert.Equal(t, "2 errors, 1 warnings (confidence: 0.50)", result.Summary())
	})
}

func TestValidator_Creation(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStandard, logger)

	assert.NotNil(t, validator)
	assert.Equal(t, ValidationLevelStandard, validator.level)
	assert.NotEmpty(t, validator.frameRules)
	assert.NotEmpty(t, validator.readingRules)
}

// encodeFrame builds wire data for validation tests.
func encodeFrame(t testing.TB, frame *protocol.Frame) []byte {
	t.Helper()
	data, err := protocol.NewFrameCodec().Encode(frame)
	require.NoError(t, err)
	return data
}

func TestValidator_ValidateFrame(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStandard, logger)

	t.Run("Valid Statistics Frame", func(t *testing.T) {
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x01,
			Payload:  []byte{0x09, 0x01, 0x02, 0x03},
		})

		result := validator.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("Too Short Frame", func(t *testing.T) {
		data := []byte{0x68, 0x01, 0x02}

		result := validator.ValidateFrame(data, "generic", make(map[string]interface{}))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
		assert.Contains(t, result.Errors[0].Message, "frame too short")
	})

	t.Run("Bad Start Byte", func(t *testing.T) {
		data := encodeFrame(t, &protocol.Frame{
			Serial:  0x116180001234,
			Command: protocol.CommandHeartbeat,
		})
		data[0] = 0x5A

		result := validator.ValidateFrame(data, "generic", make(map[string]interface{}))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
		assert.Contains(t, result.Errors[0].Message, "invalid start byte")
	})

	t.Run("Oversized Frame", func(t *testing.T) {
		data := make([]byte, protocol.FrameMinSize+protocol.MaxFramePayload+1)
		data[0] = protocol.FrameStartByte

		result := validator.ValidateFrame(data, "generic", make(map[string]interface{}))
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0].Message, "frame too large")
	})

	t.Run("Zero Fragment Index", func(t *testing.T) {
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x80, // final flag set, index zero
			Payload:  []byte{0x01},
		})

		result := validator.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
		assert.Contains(t, result.Errors[0].Message, "fragment index is zero")
	})

	t.Run("Statistics Frame Without Payload", func(t *testing.T) {
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x81,
		})

		result := validator.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0].Message, "no payload")
	})
}

func TestValidator_PatternDetection(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStrict, logger)

	t.Run("Uniform Payload Warns", func(t *testing.T) {
		payload := make([]byte, protocol.MaxFramePayload)
		for i := range payload {
			payload[i] = 0xFF
		}
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x01,
			Payload:  payload,
		})

		result := validator.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "uniform byte pattern")
	})

	t.Run("Varied Payload Passes", func(t *testing.T) {
		payload := make([]byte, protocol.MaxFramePayload)
		for i := range payload {
			payload[i] = byte(i)
		}
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x01,
			Payload:  payload,
		})

		result := validator.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.Empty(t, result.Warnings)
	})

	t.Run("Pattern Rule Skipped Below Strict", func(t *testing.T) {
		standard := NewValidator(ValidationLevelStandard, logger)

		payload := make([]byte, protocol.MaxFramePayload)
		data := encodeFrame(t, &protocol.Frame{
			Serial:   0x116180001234,
			Command:  protocol.CommandStatistics,
			Fragment: 0x01,
			Payload:  payload,
		})

		result := standard.ValidateFrame(data, "statistics", make(map[string]interface{}))
		assert.Empty(t, result.Warnings)
	})
}

func TestValidator_ValidateReadings(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStandard, logger)

	acContext := map[string]interface{}{"channel_type": "AC"}
	dcContext := map[string]interface{}{"channel_type": "DC"}

	t.Run("Plausible AC Readings", func(t *testing.T) {
		readings := map[string]float64{
			"Voltage":   230.5,
			"Frequency": 49.98,
			"Power":     350.0,
		}

		result := validator.ValidateReadings(readings, acContext)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("Plausible DC Readings", func(t *testing.T) {
		readings := map[string]float64{
			"Voltage":  33.1,
			"Power":    213.0,
			"YieldDay": 523.0,
		}

		result := validator.ValidateReadings(readings, dcContext)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Warnings)
	})

	t.Run("AC Voltage Out Of Range", func(t *testing.T) {
		readings := map[string]float64{"Voltage": 12.0}

		result := validator.ValidateReadings(readings, acContext)
		assert.True(t, result.Valid) // Warning, not error
		assert.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "voltage")
	})

	t.Run("DC Voltage Accepted Where AC Would Warn", func(t *testing.T) {
		readings := map[string]float64{"Voltage": 33.1}

		result := validator.ValidateReadings(readings, dcContext)
		assert.Empty(t, result.Warnings)
	})

	t.Run("Implausible Frequency", func(t *testing.T) {
		readings := map[string]float64{"Frequency": 12.5}

		result := validator.ValidateReadings(readings, acContext)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
		assert.Contains(t, result.Errors[0].Message, "frequency")
	})

	t.Run("Negative Power Warning", func(t *testing.T) {
		readings := map[string]float64{"Power": -1000.0}

		result := validator.ValidateReadings(readings, acContext)
		assert.True(t, result.Valid) // Warning, not error
		assert.Empty(t, result.Errors)
		assert.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "negative power")
	})

	t.Run("High Power Warning", func(t *testing.T) {
		readings := map[string]float64{"Power": 150000.0}

		result := validator.ValidateReadings(readings, acContext)
		assert.True(t, result.Valid)
		assert.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "unusually high power")
	})

	t.Run("Negative Daily Yield Errors", func(t *testing.T) {
		readings := map[string]float64{"YieldDay": -5.0}

		result := validator.ValidateReadings(readings, dcContext)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0].Message, "negative daily yield")
	})

	t.Run("Hot Inverter Warns", func(t *testing.T) {
		readings := map[string]float64{"Temperature": 95.2}

		result := validator.ValidateReadings(readings, map[string]interface{}{"channel_type": "INV"})
		assert.True(t, result.Valid)
		assert.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "temperature")
	})
}

func TestValidator_CustomRules(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStandard, logger)

	t.Run("Add Custom Frame Rule", func(t *testing.T) {
		customRule := &FrameRule{
			Name:        "custom_test_rule",
			Description: "Test custom frame rule",
			Command:     "poll",
			Level:       ValidationLevelBasic,
			Check: func(data []byte, metadata map[string]interface{}) *ValidationError {
				if len(data) > protocol.FrameMinSize {
					return &ValidationError{
						Type:     "custom",
						Severity: "warning",
						Message:  "custom rule triggered",
						Field:    "custom_field",
					}
				}
				return nil
			},
		}

		validator.AddFrameRule("poll", customRule)

		data := encodeFrame(t, &protocol.Frame{
			Serial:  0x116180001234,
			Command: protocol.CommandPoll,
			Payload: []byte{0x01, 0x02},
		})
		result := validator.ValidateFrame(data, "poll", make(map[string]interface{}))

		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0].Message, "custom rule triggered")
	})

	t.Run("Add Custom Reading Rule", func(t *testing.T) {
		customRule := &ReadingRule{
			Name:        "custom_reading_rule",
			Description: "Test custom reading rule",
			Field:       "Efficiency",
			Level:       ValidationLevelBasic,
			Check: func(value float64, context map[string]interface{}) *ValidationError {
				if value > 100 {
					return &ValidationError{
						Type:     "custom",
						Severity: "error",
						Message:  "custom reading rule triggered",
						Field:    "Efficiency",
					}
				}
				return nil
			},
		}

		validator.AddReadingRule(customRule)

		readings := map[string]float64{"Efficiency": 104.2}

		result := validator.ValidateReadings(readings, make(map[string]interface{}))
		assert.False(t, result.Valid)
		require.NotEmpty(t, result.Errors)
		assert.Contains(t, result.Errors[0].Message, "custom reading rule triggered")
	})
}

func TestValidator_Statistics(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelStandard, logger)

	// Perform some validations
	data := []byte{0x68, 0x01, 0x02} // Too short - will cause error
	validator.ValidateFrame(data, "generic", make(map[string]interface{}))

	readings := map[string]float64{
		"Power": -100.0, // Negative power - will cause warning
	}
	validator.ValidateReadings(readings, make(map[string]interface{}))

	stats := validator.GetStatistics()

	assert.Equal(t, int64(1), stats["validations_performed"])
	assert.Equal(t, int64(1), stats["errors_found"])
	assert.Equal(t, int64(1), stats["warnings_found"])
	assert.Equal(t, "standard", stats["validation_level"])
}

func TestValidator_ValidationLevelChange(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	validator := NewValidator(ValidationLevelBasic, logger)

	assert.Equal(t, ValidationLevelBasic, validator.level)

	validator.SetValidationLevel(ValidationLevelStrict)
	assert.Equal(t, ValidationLevelStrict, validator.level)
}

func TestHasUniformPattern(t *testing.T) {
	t.Run("With Uniform Pattern", func(t *testing.T) {
		data := make([]byte, 20)
		for i := range data {
			data[i] = 0xFF
		}
		assert.True(t, hasUniformPattern(data, 16))
	})

	t.Run("Without Uniform Pattern", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}
		assert.False(t, hasUniformPattern(data, 16))
	})

	t.Run("Data Too Short", func(t *testing.T) {
		data := []byte{0xFF, 0xFF, 0xFF}
		assert.False(t, hasUniformPattern(data, 16))
	})
}

// Benchmark tests
func BenchmarkValidateFrame(b *testing.B) {
	logger := zerolog.New(zerolog.NewTestWriter(b))
	validator := NewValidator(ValidationLevelStandard, logger)

	data, err := protocol.NewFrameCodec().Encode(&protocol.Frame{
		Serial:   0x116180001234,
		Command:  protocol.CommandStatistics,
		Fragment: 0x01,
		Payload:  []byte{0x09, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
	})
	if err != nil {
		b.Fatal(err)
	}

	metadata := make(map[string]interface{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		validator.ValidateFrame(data, "statistics", metadata)
	}
}

func BenchmarkValidateReadings(b *testing.B) {
	logger := zerolog.New(zerolog.NewTestWriter(b))
	validator := NewValidator(ValidationLevelStandard, logger)

	readings := map[string]float64{
		"Voltage":   230.5,
		"Frequency": 49.98,
		"Power":     350.0,
	}
	metadata := map[string]interface{}{"channel_type": "AC"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		validator.ValidateReadings(readings, metadata)
	}
}
