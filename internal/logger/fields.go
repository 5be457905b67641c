package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRunID is the structured log field key for a pipeline run identifier.
	FieldRunID = "run_id"
	// FieldPostingID is the structured log field key for a posting identifier.
	FieldPostingID = "posting_id"
	// FieldStage is the structured log field key for the pipeline stage name.
	FieldStage = "stage"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RunFields returns the fields identifying a pipeline run and its stage.
// Empty values are ignored to keep log entries compact.
func RunFields(runID, stage string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRunID, Value: runID},
		StringField{Key: FieldStage, Value: stage},
	)
}

// WithStage attaches the run and stage fields to the provided logger.
func WithStage(logger *zap.Logger, runID, stage string) *zap.Logger {
	return WithFields(logger, RunFields(runID, stage)...)
}

// Posting returns the field identifying a single posting.
func Posting(id string) zap.Field {
	return zap.String(FieldPostingID, id)
}
