package awscloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantTransient bool
	}{
		{"nil", nil, false, false},
		{"not found", apiError("ResourceNotFoundException", "gone"), true, false},
		{"no such key", apiError("NoSuchKey", "gone"), true, false},
		{"throttled", apiError("ThrottlingException", "slow down"), false, true},
		{"propagation", apiError("InvalidRequestException", "Role is not authorized yet"), false, true},
		{"plain invalid request", apiError("InvalidRequestException", "bad name"), false, false},
		{"other", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("op", tt.err)
			if tt.err == nil {
				if err != nil {
					t.Errorf("classifyError(nil) = %v", err)
				}
				return
			}
			if got := errors.Is(err, orchestrator.ErrResourceNotFound); got != tt.wantNotFound {
				t.Errorf("Is(ErrResourceNotFound) = %v, want %v (err %v)", got, tt.wantNotFound, err)
			}
			if got := errors.Is(err, orchestrator.ErrTransient); got != tt.wantTransient {
				t.Errorf("Is(ErrTransient) = %v, want %v (err %v)", got, tt.wantTransient, err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("classifyError() lost the original error")
			}
		})
	}
}

func source(name string) connection.OPCUASource {
	return connection.NewOPCUASource("conn-"+name, &connection.OPCUA{MachineIP: "10.0.0.1", ServerName: name})
}

func TestCapability_SourceLifecycle(t *testing.T) {
	api := &fakeSiteWise{}
	c := NewCapability(api, "iotsitewise:opcuacollector:2")
	ctx := context.Background()

	// No document yet: lookups miss, adds create it.
	if _, err := c.GetSourceByServerName(ctx, "gw", "kepware"); !errors.Is(err, orchestrator.ErrResourceNotFound) {
		t.Fatalf("GetSourceByServerName() error = %v, want ErrResourceNotFound", err)
	}
	if err := c.AddSource(ctx, "gw", source("kepware")); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if err := c.AddSource(ctx, "gw", source("prosys")); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}

	got, err := c.GetSourceByServerName(ctx, "gw", "kepware")
	if err != nil {
		t.Fatalf("GetSourceByServerName() error = %v", err)
	}
	if got.Endpoint.EndpointURI != "opc.tcp://10.0.0.1" {
		t.Errorf("EndpointURI = %q", got.Endpoint.EndpointURI)
	}

	// Re-adding replaces rather than duplicating.
	replacement := source("kepware")
	replacement.MeasurementDataStreamPrefix = "/replaced"
	if err := c.AddSource(ctx, "gw", replacement); err != nil {
		t.Fatalf("AddSource(replace) error = %v", err)
	}
	var doc capabilityConfig
	if err := json.Unmarshal([]byte(api.configs["gw"]), &doc); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	if len(doc.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(doc.Sources))
	}

	if err := c.DeleteSource(ctx, "gw", "kepware"); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	if err := c.DeleteSource(ctx, "gw", "kepware"); !errors.Is(err, orchestrator.ErrResourceNotFound) {
		t.Errorf("second DeleteSource() error = %v, want ErrResourceNotFound", err)
	}
	if _, err := c.GetSourceByServerName(ctx, "gw", "prosys"); err != nil {
		t.Errorf("other source lost: %v", err)
	}
}

func TestCapability_ReadFailure(t *testing.T) {
	api := &fakeSiteWise{describeErr: apiError("ThrottlingException", "slow")}
	c := NewCapability(api, "ns")

	err := c.AddSource(context.Background(), "gw", source("kepware"))
	if !errors.Is(err, orchestrator.ErrTransient) {
		t.Errorf("AddSource() error = %v, want ErrTransient", err)
	}
	if api.updates != 0 {
		t.Errorf("updates = %d, want 0 after a failed read", api.updates)
	}
}

func TestIdentity_ListPrincipalsPaginates(t *testing.T) {
	api := &fakeIoT{principalPages: [][]string{{"p1", "p2"}, {"p3"}}}
	id := NewIdentity(api)

	got, err := id.ListPrincipals(context.Background(), "line-1")
	if err != nil {
		t.Fatalf("ListPrincipals() error = %v", err)
	}
	if fmt.Sprint(got) != "[p1 p2 p3]" {
		t.Errorf("ListPrincipals() = %v, want [p1 p2 p3]", got)
	}
	if api.listCalls != 2 {
		t.Errorf("list calls = %d, want 2", api.listCalls)
	}
}

func TestIdentity_DescribeEndpoints(t *testing.T) {
	id := NewIdentity(&fakeIoT{})

	got, err := id.DescribeEndpoints(context.Background())
	if err != nil {
		t.Fatalf("DescribeEndpoints() error = %v", err)
	}
	if got.Data != "data.example.com" || got.Credential != "cred.example.com" {
		t.Errorf("DescribeEndpoints() = %+v", got)
	}
}

func TestIdentity_CreateThing(t *testing.T) {
	id := NewIdentity(&fakeIoT{})

	arn, err := id.CreateThing(context.Background(), "line-1")
	if err != nil || arn != "arn:thing/line-1" {
		t.Errorf("CreateThing() = %q, %v", arn, err)
	}
	if _, err := id.CreateThing(context.Background(), "taken"); err == nil {
		t.Error("CreateThing(taken) expected error")
	}
}

func TestWorker_Invoke(t *testing.T) {
	api := &fakeLambda{out: &lambda.InvokeOutput{StatusCode: 202}}
	w := NewWorker(api, "connection-builder")

	if err := w.Invoke(context.Background(), []byte(`{"control":"deploy"}`)); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if api.in.InvocationType != lambdatypes.InvocationTypeEvent {
		t.Errorf("InvocationType = %q, want Event", api.in.InvocationType)
	}

	api.out = &lambda.InvokeOutput{StatusCode: 200}
	if err := w.Invoke(context.Background(), nil); err == nil {
		t.Error("Invoke() with status 200 expected error")
	}

	api.out, api.err = nil, apiError("TooManyRequestsException", "slow")
	if err := w.Invoke(context.Background(), nil); !errors.Is(err, orchestrator.ErrTransient) {
		t.Errorf("Invoke() error = %v, want ErrTransient", err)
	}
}

func TestCopySource(t *testing.T) {
	tests := []struct {
		bucket, key, want string
	}{
		{"edge-artifacts", "templates/install.sh", "edge-artifacts/templates/install.sh"},
		{"edge-artifacts", "devices/line 1.sh", "edge-artifacts/devices/line%201.sh"},
	}
	for _, tt := range tests {
		if got := copySource(tt.bucket, tt.key); got != tt.want {
			t.Errorf("copySource(%q, %q) = %q, want %q", tt.bucket, tt.key, got, tt.want)
		}
	}
}
