package protocol

// ErrorCode is carried as error_code in ERR responses. Values are part of the
// wire format.
type ErrorCode int

const (
	ErrDebug            ErrorCode = -2 // diagnostic only
	ErrUnspecified      ErrorCode = -1
	ErrUnrecognised     ErrorCode = 0
	ErrInvalidArgs      ErrorCode = 1
	ErrNotFound         ErrorCode = 2
	ErrPermissionDenied ErrorCode = 3
	ErrTimeout          ErrorCode = 4
	ErrInternal         ErrorCode = 5
)

var errorCodeNames = map[ErrorCode]string{
	ErrDebug:            "DEBUG",
	ErrUnspecified:      "UNSPECIFIED",
	ErrUnrecognised:     "UNRECOGNISED",
	ErrInvalidArgs:      "INVALID_ARGS",
	ErrNotFound:         "NOT_FOUND",
	ErrPermissionDenied: "PERMISSION_DENIED",
	ErrTimeout:          "TIMEOUT",
	ErrInternal:         "INTERNAL_ERROR",
}

// String returns the taxonomy name; unknown values map to UNSPECIFIED.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNSPECIFIED"
}

// ParseErrorCode looks a code up by taxonomy name.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for code, n := range errorCodeNames {
		if n == name {
			return code, true
		}
	}
	return ErrUnspecified, false
}
