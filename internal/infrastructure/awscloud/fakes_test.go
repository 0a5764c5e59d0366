package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iotsitewise"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/smithy-go"
)

func apiError(code, msg string) error {
	return &smithy.GenericAPIError{Code: code, Message: msg}
}

// fakeSiteWise keeps capability documents per gateway.
type fakeSiteWise struct {
	sitewiseAPI

	configs     map[string]string
	describeErr error
	updates     int
}

func (f *fakeSiteWise) DescribeGatewayCapabilityConfiguration(_ context.Context, in *iotsitewise.DescribeGatewayCapabilityConfigurationInput, _ ...func(*iotsitewise.Options)) (*iotsitewise.DescribeGatewayCapabilityConfigurationOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	doc, ok := f.configs[aws.ToString(in.GatewayId)]
	if !ok {
		return nil, apiError("ResourceNotFoundException", "no capability configuration")
	}
	return &iotsitewise.DescribeGatewayCapabilityConfigurationOutput{
		CapabilityConfiguration: aws.String(doc),
		CapabilityNamespace:     in.CapabilityNamespace,
		GatewayId:               in.GatewayId,
	}, nil
}

func (f *fakeSiteWise) UpdateGatewayCapabilityConfiguration(_ context.Context, in *iotsitewise.UpdateGatewayCapabilityConfigurationInput, _ ...func(*iotsitewise.Options)) (*iotsitewise.UpdateGatewayCapabilityConfigurationOutput, error) {
	if f.configs == nil {
		f.configs = map[string]string{}
	}
	f.configs[aws.ToString(in.GatewayId)] = aws.ToString(in.CapabilityConfiguration)
	f.updates++
	return &iotsitewise.UpdateGatewayCapabilityConfigurationOutput{}, nil
}

// fakeIoT pages principals and answers endpoint lookups.
type fakeIoT struct {
	iotAPI

	principalPages [][]string
	listCalls      int
}

func (f *fakeIoT) ListThingPrincipals(_ context.Context, _ *iot.ListThingPrincipalsInput, _ ...func(*iot.Options)) (*iot.ListThingPrincipalsOutput, error) {
	page := f.principalPages[f.listCalls]
	f.listCalls++
	out := &iot.ListThingPrincipalsOutput{Principals: page}
	if f.listCalls < len(f.principalPages) {
		out.NextToken = aws.String("more")
	}
	return out, nil
}

func (f *fakeIoT) DescribeEndpoint(_ context.Context, in *iot.DescribeEndpointInput, _ ...func(*iot.Options)) (*iot.DescribeEndpointOutput, error) {
	addr := "data.example.com"
	if aws.ToString(in.EndpointType) == endpointCredential {
		addr = "cred.example.com"
	}
	return &iot.DescribeEndpointOutput{EndpointAddress: aws.String(addr)}, nil
}

func (f *fakeIoT) CreateThing(_ context.Context, in *iot.CreateThingInput, _ ...func(*iot.Options)) (*iot.CreateThingOutput, error) {
	if aws.ToString(in.ThingName) == "taken" {
		return nil, apiError("ResourceAlreadyExistsException", "thing exists")
	}
	return &iot.CreateThingOutput{ThingArn: aws.String("arn:thing/" + aws.ToString(in.ThingName))}, nil
}

type fakeLambda struct {
	out *lambda.InvokeOutput
	err error
	in  *lambda.InvokeInput
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.in = in
	return f.out, f.err
}
