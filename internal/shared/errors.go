package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Device errors
	ErrCameraUnavailable = fmt.Errorf("camera unavailable")
	ErrStreamClosed      = fmt.Errorf("stream closed")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrInvalidResponse    = fmt.Errorf("invalid analysis response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Session errors
	ErrNoMovementSelected = fmt.Errorf("no movement selected")
	ErrMovementNotFound   = fmt.Errorf("movement not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
