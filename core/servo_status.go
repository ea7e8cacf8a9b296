package core

import "errors"

var (
	ErrUnknownOID = errors.New("oid not configured")
	ErrOIDInUse   = errors.New("oid already configured")
	ErrBadPort    = errors.New("port not in port table")
)

// StatusCode is the numeric code carried by servo_status. Values are part of
// the wire protocol and must not be renumbered.
type StatusCode uint8

const (
	CodeOK             StatusCode = 0
	CodeUnknownOID     StatusCode = 1
	CodeOIDInUse       StatusCode = 2
	CodeInvalidServo   StatusCode = 3
	CodeBadPort        StatusCode = 4
	CodeBadCalibration StatusCode = 5
	CodeError          StatusCode = 255 // generic fallback
)

var statusNames = map[StatusCode]string{
	CodeOK:             "ok",
	CodeUnknownOID:     "unknown_oid",
	CodeOIDInUse:       "oid_in_use",
	CodeInvalidServo:   "invalid_servo",
	CodeBadPort:        "bad_port",
	CodeBadCalibration: "bad_calibration",
	CodeError:          "error",
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return "code_" + utoa(uint32(c))
}

// Error lets a StatusCode travel as an error value
func (c StatusCode) Error() string { return c.String() }

// CodeOf extracts a StatusCode from an error, defaulting to CodeError.
func CodeOf(err error) StatusCode {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrUnknownOID):
		return CodeUnknownOID
	case errors.Is(err, ErrOIDInUse):
		return CodeOIDInUse
	case errors.Is(err, ErrInvalidServo):
		return CodeInvalidServo
	case errors.Is(err, ErrBadPort), errors.Is(err, ErrNilPort):
		return CodeBadPort
	case errors.Is(err, ErrBadCalibration):
		return CodeBadCalibration
	}
	var c StatusCode
	if errors.As(err, &c) {
		return c
	}
	return CodeError
}
