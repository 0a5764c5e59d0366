package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// greengrassAPI is the subset of *greengrassv2.Client used by Fleet.
type greengrassAPI interface {
	ListCoreDevices(ctx context.Context, in *greengrassv2.ListCoreDevicesInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.ListCoreDevicesOutput, error)
	DeleteCoreDevice(ctx context.Context, in *greengrassv2.DeleteCoreDeviceInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.DeleteCoreDeviceOutput, error)
}

// Fleet implements orchestrator.FleetRegistry on Greengrass V2 core devices.
type Fleet struct {
	api greengrassAPI
}

var _ orchestrator.FleetRegistry = (*Fleet)(nil)

// NewFleet creates a Fleet adapter.
func NewFleet(api greengrassAPI) *Fleet {
	return &Fleet{api: api}
}

// ListCoreDevices returns one page of core devices.
func (f *Fleet) ListCoreDevices(ctx context.Context, nextToken string) (*orchestrator.FleetPage, error) {
	in := &greengrassv2.ListCoreDevicesInput{}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := f.api.ListCoreDevices(ctx, in)
	if err != nil {
		return nil, classifyError("greengrass ListCoreDevices", err)
	}

	page := &orchestrator.FleetPage{
		Devices:   make([]orchestrator.FleetDevice, 0, len(out.CoreDevices)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, d := range out.CoreDevices {
		page.Devices = append(page.Devices, orchestrator.FleetDevice{
			Name:             aws.ToString(d.CoreDeviceThingName),
			Status:           string(d.Status),
			LastStatusUpdate: aws.ToTime(d.LastStatusUpdateTimestamp),
		})
	}
	return page, nil
}

// DeleteCoreDevice removes a core device from the fleet.
func (f *Fleet) DeleteCoreDevice(ctx context.Context, name string) error {
	_, err := f.api.DeleteCoreDevice(ctx, &greengrassv2.DeleteCoreDeviceInput{
		CoreDeviceThingName: aws.String(name),
	})
	return classifyError("greengrass DeleteCoreDevice", err)
}
