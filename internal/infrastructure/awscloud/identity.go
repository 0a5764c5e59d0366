package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// Endpoint types requested from DescribeEndpoint.
const (
	endpointData       = "iot:Data-ATS"
	endpointCredential = "iot:CredentialProvider"
)

// iotAPI is the subset of *iot.Client used by Identity.
type iotAPI interface {
	CreateThing(ctx context.Context, in *iot.CreateThingInput, optFns ...func(*iot.Options)) (*iot.CreateThingOutput, error)
	DeleteThing(ctx context.Context, in *iot.DeleteThingInput, optFns ...func(*iot.Options)) (*iot.DeleteThingOutput, error)
	DescribeThing(ctx context.Context, in *iot.DescribeThingInput, optFns ...func(*iot.Options)) (*iot.DescribeThingOutput, error)
	AttachThingPrincipal(ctx context.Context, in *iot.AttachThingPrincipalInput, optFns ...func(*iot.Options)) (*iot.AttachThingPrincipalOutput, error)
	DetachThingPrincipal(ctx context.Context, in *iot.DetachThingPrincipalInput, optFns ...func(*iot.Options)) (*iot.DetachThingPrincipalOutput, error)
	ListThingPrincipals(ctx context.Context, in *iot.ListThingPrincipalsInput, optFns ...func(*iot.Options)) (*iot.ListThingPrincipalsOutput, error)
	DescribeEndpoint(ctx context.Context, in *iot.DescribeEndpointInput, optFns ...func(*iot.Options)) (*iot.DescribeEndpointOutput, error)
}

// Identity implements orchestrator.IdentityRegistry on AWS IoT things.
type Identity struct {
	api iotAPI
}

var _ orchestrator.IdentityRegistry = (*Identity)(nil)

// NewIdentity creates an Identity adapter.
func NewIdentity(api iotAPI) *Identity {
	return &Identity{api: api}
}

// CreateThing creates a thing and returns its ARN.
func (i *Identity) CreateThing(ctx context.Context, name string) (string, error) {
	out, err := i.api.CreateThing(ctx, &iot.CreateThingInput{ThingName: aws.String(name)})
	if err != nil {
		return "", classifyError("iot CreateThing", err)
	}
	return aws.ToString(out.ThingArn), nil
}

// DeleteThing deletes a thing.
func (i *Identity) DeleteThing(ctx context.Context, name string) error {
	_, err := i.api.DeleteThing(ctx, &iot.DeleteThingInput{ThingName: aws.String(name)})
	return classifyError("iot DeleteThing", err)
}

// DescribeThing returns the ARN of an existing thing.
func (i *Identity) DescribeThing(ctx context.Context, name string) (string, error) {
	out, err := i.api.DescribeThing(ctx, &iot.DescribeThingInput{ThingName: aws.String(name)})
	if err != nil {
		return "", classifyError("iot DescribeThing", err)
	}
	return aws.ToString(out.ThingArn), nil
}

// AttachPrincipal binds a principal (certificate or role alias ARN) to a thing.
func (i *Identity) AttachPrincipal(ctx context.Context, thingName, principal string) error {
	_, err := i.api.AttachThingPrincipal(ctx, &iot.AttachThingPrincipalInput{
		ThingName: aws.String(thingName),
		Principal: aws.String(principal),
	})
	return classifyError("iot AttachThingPrincipal", err)
}

// DetachPrincipal removes a principal binding from a thing.
func (i *Identity) DetachPrincipal(ctx context.Context, thingName, principal string) error {
	_, err := i.api.DetachThingPrincipal(ctx, &iot.DetachThingPrincipalInput{
		ThingName: aws.String(thingName),
		Principal: aws.String(principal),
	})
	return classifyError("iot DetachThingPrincipal", err)
}

// ListPrincipals returns every principal bound to a thing, following
// pagination to the end.
func (i *Identity) ListPrincipals(ctx context.Context, thingName string) ([]string, error) {
	var principals []string
	var token *string
	for {
		out, err := i.api.ListThingPrincipals(ctx, &iot.ListThingPrincipalsInput{
			ThingName: aws.String(thingName),
			NextToken: token,
		})
		if err != nil {
			return nil, classifyError("iot ListThingPrincipals", err)
		}
		principals = append(principals, out.Principals...)

		if aws.ToString(out.NextToken) == "" {
			return principals, nil
		}
		token = out.NextToken
	}
}

// DescribeEndpoints returns the account's data and credential provider
// endpoints.
func (i *Identity) DescribeEndpoints(ctx context.Context) (orchestrator.Endpoints, error) {
	data, err := i.api.DescribeEndpoint(ctx, &iot.DescribeEndpointInput{EndpointType: aws.String(endpointData)})
	if err != nil {
		return orchestrator.Endpoints{}, classifyError("iot DescribeEndpoint data", err)
	}
	cred, err := i.api.DescribeEndpoint(ctx, &iot.DescribeEndpointInput{EndpointType: aws.String(endpointCredential)})
	if err != nil {
		return orchestrator.Endpoints{}, classifyError("iot DescribeEndpoint credential", err)
	}
	return orchestrator.Endpoints{
		Data:       aws.ToString(data.EndpointAddress),
		Credential: aws.ToString(cred.EndpointAddress),
	}, nil
}
