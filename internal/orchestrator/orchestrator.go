package orchestrator

import (
	"errors"
	"path"
	"time"
)

// DefaultTopicPrefix prefixes the job and info topics.
const DefaultTopicPrefix = "graylogic/edge"

// Config holds the orchestrator settings.
type Config struct {
	// TopicPrefix prefixes the job and info topics.
	TopicPrefix string

	// Principal is the credential principal attached to created identities.
	Principal string

	// TemplatePrefix is the object key prefix of install script templates.
	TemplatePrefix string

	// InstallPrefix is the object key prefix of rendered scripts and copied
	// artifacts.
	InstallPrefix string

	// DefaultScript is the template used when a request names none.
	DefaultScript string

	// SharedArtifacts are object keys copied next to each rendered script.
	SharedArtifacts []string

	// RetryAttempts and RetryStep bound retries of eventually consistent
	// calls.
	RetryAttempts int
	RetryStep     time.Duration

	// InstallationID identifies this installation in usage metrics.
	InstallationID string
}

// Deps holds the collaborators of the orchestrator. Metrics and Logger are
// optional.
type Deps struct {
	Gateways    GatewayStore
	Connections ConnectionStore
	Identity    IdentityRegistry
	Fleet       FleetRegistry
	Capability  CapabilityStore
	Objects     ObjectStore
	Publisher   Publisher
	Worker      Worker
	Metrics     MetricsSender
	Audit       AuditTrail
	Logger      Logger
}

// Orchestrator is the entry point for gateway and connection operations.
//
// Thread Safety:
//   - All methods are safe for concurrent use; invocations share nothing but
//     the collaborators.
type Orchestrator struct {
	cfg   Config
	retry RetryPolicy

	gateways    GatewayStore
	connections ConnectionStore
	identity    IdentityRegistry
	fleet       FleetRegistry
	capability  CapabilityStore
	objects     ObjectStore
	publisher   Publisher
	worker      Worker
	metrics     MetricsSender
	audit       AuditTrail
	logger      Logger
}

// New creates an Orchestrator.
//
// Parameters:
//   - cfg: Orchestrator settings; zero values fall back to defaults
//   - deps: Collaborators; every field except Metrics, Audit and Logger is required
//
// Returns:
//   - *Orchestrator: Ready for use
//   - error: If a required collaborator is missing
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	var missing []error
	require := func(ok bool, name string) {
		if !ok {
			missing = append(missing, errors.New("orchestrator: "+name+" is required"))
		}
	}
	require(deps.Gateways != nil, "gateway store")
	require(deps.Connections != nil, "connection store")
	require(deps.Identity != nil, "identity registry")
	require(deps.Fleet != nil, "fleet registry")
	require(deps.Capability != nil, "capability store")
	require(deps.Objects != nil, "object store")
	require(deps.Publisher != nil, "publisher")
	require(deps.Worker != nil, "worker")
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryStep < 0 {
		cfg.RetryStep = DefaultRetryStep
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Orchestrator{
		cfg: cfg,
		retry: RetryPolicy{
			Attempts: cfg.RetryAttempts,
			Step:     cfg.RetryStep,
		},
		gateways:    deps.Gateways,
		connections: deps.Connections,
		identity:    deps.Identity,
		fleet:       deps.Fleet,
		capability:  deps.Capability,
		objects:     deps.Objects,
		publisher:   deps.Publisher,
		worker:      deps.Worker,
		metrics:     deps.Metrics,
		audit:       deps.Audit,
		logger:      logger,
	}, nil
}

// scriptKey is the object key of a device's rendered install script.
func (o *Orchestrator) scriptKey(deviceName string) string {
	return path.Join(o.cfg.InstallPrefix, deviceName+"-install.sh")
}

// artifactKey is the object key of a shared artifact copied for a device.
func (o *Orchestrator) artifactKey(deviceName, sharedKey string) string {
	return path.Join(o.cfg.InstallPrefix, deviceName, path.Base(sharedKey))
}

// fail logs a terminal error where it arises and returns it.
func (o *Orchestrator) fail(e *Error) error {
	args := []any{"kind", e.Kind, "operation", e.Op, "error", e.Error()}
	if e.Resource != "" {
		args = append(args, "resource", e.Resource)
	}
	switch e.Kind {
	case KindInternal, KindTransient:
		o.logger.Error("operation failed", args...)
	default:
		o.logger.Warn("operation rejected", args...)
	}
	return e
}
