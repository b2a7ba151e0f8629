package usecase

import (
	"context"
	"errors"

	"arenamic/internal/domain"
)

var errPermissionTimeout = errors.New("timed out waiting for microphone access")

var platformReasons = map[string]domain.FailureReason{
	domain.ErrNameNotAllowed:             domain.FailurePermissionDenied,
	domain.ErrNamePermissionDenied:       domain.FailurePermissionDenied,
	domain.ErrNameNotFound:               domain.FailureDeviceNotFound,
	domain.ErrNameDevicesNotFound:        domain.FailureDeviceNotFound,
	domain.ErrNameNotReadable:            domain.FailureDeviceBusy,
	domain.ErrNameTrackStart:             domain.FailureDeviceBusy,
	domain.ErrNameOverconstrained:        domain.FailureConstraintsUnsatisfiable,
	domain.ErrNameConstraintNotSatisfied: domain.FailureConstraintsUnsatisfiable,
	domain.ErrNameSecurity:               domain.FailureSecurityError,
}

// ClassifyPlatformError maps a platform error name to a failure reason.
// Unrecognized names are FailureUnknown.
func ClassifyPlatformError(name string) domain.FailureReason {
	if reason, ok := platformReasons[name]; ok {
		return reason
	}
	return domain.FailureUnknown
}

// classifyAcquireError turns a stream acquisition failure into a
// CaptureError.
func classifyAcquireError(err error) *domain.CaptureError {
	var captureErr *domain.CaptureError
	if errors.As(err, &captureErr) {
		return captureErr
	}

	var platformErr *domain.PlatformError
	if errors.As(err, &platformErr) {
		return domain.NewCaptureError(ClassifyPlatformError(platformErr.Name), platformErr.Message, err)
	}

	switch {
	case errors.Is(err, errPermissionTimeout):
		return domain.NewCaptureError(domain.FailureUnknown, errPermissionTimeout.Error(), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.NewCaptureError(domain.FailureUnknown, "microphone request was canceled", err)
	}
	return domain.NewCaptureError(domain.FailureUnknown, "", err)
}
