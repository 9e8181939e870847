package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Storage errors
	ErrStorage    ErrorCode = "storage_error"
	ErrSchemaInit ErrorCode = "schema_init_failed"
	ErrDecode     ErrorCode = "decode_error"

	// Input errors
	ErrInput            ErrorCode = "input_error"
	ErrNoRange          ErrorCode = "no_range"
	ErrOneDatetime      ErrorCode = "one_datetime"
	ErrTooManyDatetimes ErrorCode = "too_many_datetimes"
	ErrRangeUnsupported ErrorCode = "range_unsupported"
	ErrUnknownKind      ErrorCode = "unknown_kind"

	// Metrics errors
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrSystemIdentity ErrorCode = "system_identity_failed"
)

// inputCodes are the codes handled at the interactive boundary by re-prompting.
var inputCodes = map[ErrorCode]bool{
	ErrInput:            true,
	ErrNoRange:          true,
	ErrOneDatetime:      true,
	ErrTooManyDatetimes: true,
	ErrRangeUnsupported: true,
	ErrUnknownKind:      true,
}

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrAlreadyRunning:   "Another recorder is already running",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrStorage:          "Storage operation failed",
	ErrSchemaInit:       "Failed to create schema",
	ErrDecode:           "Failed to decode row",
	ErrInput:            "Invalid input",
	ErrNoRange:          "No range given",
	ErrOneDatetime:      "Only one datetime given",
	ErrTooManyDatetimes: "Too many datetimes given",
	ErrRangeUnsupported: "Range queries are not supported for this record kind",
	ErrUnknownKind:      "Unknown record kind",
	ErrCollectMetrics:   "Failed to collect metrics",
	ErrSystemIdentity:   "Failed to read system identity",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// IsInput reports whether err carries one of the input error codes.
func IsInput(err error) bool {
	var c Coded
	if !As(err, &c) {
		return false
	}

	return inputCodes[c.Code()]
}
