package awscloud

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// Error codes that mean the resource does not exist.
var notFoundCodes = map[string]bool{
	"ResourceNotFoundException": true,
	"NoSuchKey":                 true,
	"NotFound":                  true,
}

// Error codes worth retrying.
var transientCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ServiceUnavailableException":   true,
	"InternalFailureException":      true,
	"ConflictingOperationException": true,
	"ResourceConflictException":     true,
	"ResourceNotReadyException":     true,
	"SlowDown":                      true,
}

// propagationHints mark an InvalidRequestException caused by a binding or
// role that is not yet visible.
var propagationHints = []string{"not authorized", "propagat", "eventual", "assume"}

// classifyError wraps err with orchestrator.ErrResourceNotFound or
// orchestrator.ErrTransient when the AWS error code calls for it. op names
// the failing call.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case notFoundCodes[code]:
			return fmt.Errorf("%s: %w: %w", op, orchestrator.ErrResourceNotFound, err)
		case transientCodes[code]:
			return fmt.Errorf("%s: %w: %w", op, orchestrator.ErrTransient, err)
		case code == "InvalidRequestException" && hasPropagationHint(apiErr.ErrorMessage()):
			return fmt.Errorf("%s: %w: %w", op, orchestrator.ErrTransient, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, orchestrator.ErrResourceNotFound, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func hasPropagationHint(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range propagationHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
