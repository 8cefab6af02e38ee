package errors

import (
	"fmt"
	"strings"
)

// Error codes used across the bridge. Codes are grouped by concern so logs
// and metrics can be correlated without parsing messages.
const (
	// Transport errors (1000-1099)
	CodeConnectionFailed int = 1000
	CodeConnectionLost   int = 1001
	CodeReadTimeout      int = 1002

	// Session/protocol errors (1100-1199)
	CodeHandshakeFailed int = 1100

	// Record validation errors (1200-1299)
	CodeInvalidRecord int = 1200

	// Delivery errors (1300-1399)
	CodeDeliveryFailed int = 1300

	// Internal errors (1900-1999)
	CodeInternal int = 1900
)

// ConnectionFailed creates an error for a failed connection attempt.
func ConnectionFailed(endpoint string, cause error) BridgeError {
	message := fmt.Sprintf("failed to connect to %s", endpoint)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeConnectionFailed,
		message,
		CategoryTransport,
		SeverityError,
	).WithContext(&Context{Endpoint: endpoint})
}

// ConnectionLost creates an error for a connection dropped mid-session.
func ConnectionLost(endpoint string, cause error) BridgeError {
	message := fmt.Sprintf("lost connection to %s", endpoint)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeConnectionLost,
		message,
		CategoryTransport,
		SeverityError,
	).WithContext(&Context{Endpoint: endpoint})
}

// HandshakeFailed creates an error for a login/handshake sequence that did not
// reach the ready state.
func HandshakeFailed(state string, cause error) BridgeError {
	message := fmt.Sprintf("handshake failed in state %s", state)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeHandshakeFailed,
		message,
		CategoryProtocol,
		SeverityError,
	).WithContext(&Context{Component: "session", Operation: "handshake"})
}

// InvalidRecord creates an error for a structured record missing required keys.
func InvalidRecord(missing []string) BridgeError {
	return NewError(
		CodeInvalidRecord,
		fmt.Sprintf("record missing required keys: %s", strings.Join(missing, ", ")),
		CategoryValidation,
		SeverityWarning,
	)
}

// DeliveryFailed creates an error for a notification that could not be
// delivered. A statusCode of zero means the request itself failed.
func DeliveryFailed(endpoint string, statusCode int, cause error) BridgeError {
	message := fmt.Sprintf("delivery to %s failed", endpoint)
	if statusCode != 0 {
		message = fmt.Sprintf("%s with status %d", message, statusCode)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeDeliveryFailed,
		message,
		CategoryDelivery,
		SeverityWarning,
	).WithContext(&Context{Endpoint: endpoint})
}

// Internal creates an error for unexpected internal failures.
func Internal(operation string, cause error) BridgeError {
	message := fmt.Sprintf("internal error during %s", operation)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeInternal,
		message,
		CategoryInternal,
		SeverityCritical,
	).WithContext(&Context{Operation: operation})
}
