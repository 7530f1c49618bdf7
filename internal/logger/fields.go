package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldBuyer is the structured log field key for the buyer profile id.
	FieldBuyer = "buyer_id"
	// FieldListing is the structured log field key for a listing id.
	FieldListing = "listing_id"
	// FieldLevel is the structured log field key for a search widening level.
	FieldLevel = "widening_level"
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

// WithFields attaches the provided fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// BuyerFields describes the buyer a run is working for. Empty values are skipped.
func BuyerFields(id, name string) []zap.Field {
	return StringFields(
		StringField{Key: FieldBuyer, Value: id},
		StringField{Key: "buyer_name", Value: name},
	)
}

// WithBuyer attaches the buyer fields to the provided logger.
func WithBuyer(logger *zap.Logger, id, name string) *zap.Logger {
	return WithFields(logger, BuyerFields(id, name)...)
}
