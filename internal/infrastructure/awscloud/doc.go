// Package awscloud implements the orchestrator's external clients on AWS.
//
//   - Identity: AWS IoT things, principal bindings and account endpoints
//   - Fleet: AWS IoT Greengrass V2 core devices
//   - Capability: AWS IoT SiteWise gateways and their OPC-UA collector
//     capability configuration
//   - Objects: Amazon S3 objects in the provisioning bucket
//   - Worker: asynchronous AWS Lambda invocations
//
// Each adapter depends on a narrow interface over the SDK client so tests
// can substitute a fake. Errors are classified by classifyError: missing
// resources wrap orchestrator.ErrResourceNotFound and throttling or
// propagation failures wrap orchestrator.ErrTransient.
package awscloud
