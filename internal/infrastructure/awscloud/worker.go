package awscloud

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// lambdaAPI is the subset of *lambda.Client used by Worker.
type lambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Worker implements orchestrator.Worker with asynchronous Lambda
// invocations. Invoke returns once Lambda has queued the event.
type Worker struct {
	api          lambdaAPI
	functionName string
}

var _ orchestrator.Worker = (*Worker)(nil)

// NewWorker creates a Worker adapter for functionName.
func NewWorker(api lambdaAPI, functionName string) *Worker {
	return &Worker{api: api, functionName: functionName}
}

// Invoke queues payload for the worker function.
func (w *Worker) Invoke(ctx context.Context, payload []byte) error {
	out, err := w.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(w.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return classifyError("lambda Invoke", err)
	}
	if out.StatusCode != http.StatusAccepted {
		return fmt.Errorf("lambda Invoke %s: unexpected status %d", w.functionName, out.StatusCode)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("lambda Invoke %s: %s", w.functionName, aws.ToString(out.FunctionError))
	}
	return nil
}
