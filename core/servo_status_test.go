package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want StatusCode
	}{
		{nil, CodeOK},
		{ErrUnknownOID, CodeUnknownOID},
		{ErrOIDInUse, CodeOIDInUse},
		{ErrInvalidServo, CodeInvalidServo},
		{ErrBadPort, CodeBadPort},
		{ErrNilPort, CodeBadPort},
		{ErrBadCalibration, CodeBadCalibration},
		{fmt.Errorf("attach oid 3: %w", ErrBadCalibration), CodeBadCalibration},
		{CodeOIDInUse, CodeOIDInUse},
		{errors.New("something else"), CodeError},
	}

	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v): expected %s, got %s", tt.err, tt.want, got)
		}
	}
}

func TestStatusCodeString(t *testing.T) {
	if CodeBadPort.String() != "bad_port" {
		t.Errorf("Expected bad_port, got %s", CodeBadPort.String())
	}
	if StatusCode(77).String() != "code_77" {
		t.Errorf("Expected code_77, got %s", StatusCode(77).String())
	}
}
