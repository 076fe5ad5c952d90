// Package apperr holds the error taxonomy shared by the chat core and its
// presentation surfaces.
package apperr

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

var (
	// ErrNodeNotFound is returned by navigation on a stale or unknown node id.
	ErrNodeNotFound = errors.New("node not found")
	// ErrServiceUnavailable wraps failures of the conversation service.
	ErrServiceUnavailable = errors.New("conversation service unavailable")
	// ErrGenerationFailed is returned when a generation rejects mid-stream.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrBusy rejects work requested while a generation owns the stream.
	ErrBusy = errors.New("a response is still streaming")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NodeNotFound wraps ErrNodeNotFound with the offending id.
func NodeNotFound(nodeID string) error {
	return errors.Wrapf(ErrNodeNotFound, "node %q", nodeID)
}

func Unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return errors.Wrapf(ErrServiceUnavailable, "%s: %v", op, err)
}

func GenerationFailed(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGenerationFailed) {
		return err
	}
	return errors.Wrapf(ErrGenerationFailed, "%v", err)
}

func Invalid(msg string) error {
	return errors.Wrap(ErrInvalidArgument, msg)
}

// HTTPStatus maps the taxonomy onto response codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrNodeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrGenerationFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrServiceUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Notice is the user-facing text raised for a recovered failure.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNodeNotFound):
		return "The selected message no longer exists"
	case errors.Is(err, ErrBusy):
		return "Wait for the current response to finish"
	case errors.Is(err, ErrGenerationFailed):
		return "Failed to generate a response"
	case errors.Is(err, ErrServiceUnavailable):
		return "The conversation service is unavailable"
	case errors.Is(err, ErrInvalidArgument):
		return "Invalid request"
	default:
		return "Something went wrong"
	}
}
