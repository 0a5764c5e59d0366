package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

var errBoom = errors.New("boom")

// callLog records downstream calls as "component.Method args".
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// count returns how many recorded calls start with prefix.
func (l *callLog) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// --- metadata stores ---

type fakeGatewayStore struct {
	mu        sync.Mutex
	records   map[string]gateway.Gateway
	pageSize  int
	getErr    error
	listErr   error
	createErr error
	creates   int

	// afterGet runs under the lock once Get has taken its snapshot, standing
	// in for a concurrent writer.
	afterGet func(records map[string]gateway.Gateway)
}

func newFakeGatewayStore() *fakeGatewayStore {
	return &fakeGatewayStore{records: map[string]gateway.Gateway{}}
}

func (s *fakeGatewayStore) put(g gateway.Gateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[g.Name] = g
}

func (s *fakeGatewayStore) Get(_ context.Context, name string) (*gateway.Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	g, ok := s.records[name]
	if !ok {
		return nil, gateway.ErrGatewayNotFound
	}
	if s.afterGet != nil {
		s.afterGet(s.records)
	}
	return &g, nil
}

func (s *fakeGatewayStore) Create(_ context.Context, g *gateway.Gateway) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.records[g.Name]; ok {
		return gateway.ErrGatewayExists
	}
	s.records[g.Name] = *g
	return nil
}

func (s *fakeGatewayStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.records[name]
	if !ok {
		return gateway.ErrGatewayNotFound
	}
	if g.ConnectionCount > 0 {
		return gateway.ErrGatewayInUse
	}
	delete(s.records, name)
	return nil
}

// List pages by name; the token is the last name returned.
func (s *fakeGatewayStore) List(_ context.Context, token string, _ int) (*gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		if name > token {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	page := &gateway.Page{}
	for i, name := range names {
		if s.pageSize > 0 && i == s.pageSize {
			page.NextToken = page.Gateways[i-1].Name
			break
		}
		page.Gateways = append(page.Gateways, s.records[name])
	}
	return page, nil
}

func (s *fakeGatewayStore) AdjustConnectionCount(_ context.Context, name string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.records[name]
	if !ok {
		return gateway.ErrGatewayNotFound
	}
	if g.ConnectionCount+delta < 0 {
		return gateway.ErrNegativeConnectionCount
	}
	g.ConnectionCount += delta
	s.records[name] = g
	return nil
}

func (s *fakeGatewayStore) record(name string) (gateway.Gateway, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.records[name]
	return g, ok
}

type fakeConnectionStore struct {
	mu        sync.Mutex
	records   map[string]*connection.Connection
	pageSize  int
	updates   int
	updateErr error
}

func newFakeConnectionStore() *fakeConnectionStore {
	return &fakeConnectionStore{records: map[string]*connection.Connection{}}
}

func (s *fakeConnectionStore) put(c *connection.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c.Name] = c.Clone()
}

func (s *fakeConnectionStore) stored(name string) *connection.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[name].Clone()
}

func (s *fakeConnectionStore) Get(_ context.Context, name string) (*connection.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[name]
	if !ok {
		return nil, connection.ErrConnectionNotFound
	}
	return c.Clone(), nil
}

func (s *fakeConnectionStore) Create(_ context.Context, c *connection.Connection) error {
	if err := connection.ValidateDefinition(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.Name]; ok {
		return connection.ErrConnectionExists
	}
	s.records[c.Name] = c.Clone()
	return nil
}

func (s *fakeConnectionStore) Update(_ context.Context, c *connection.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.records[c.Name]; !ok {
		return connection.ErrConnectionNotFound
	}
	s.updates++
	s.records[c.Name] = c.Clone()
	return nil
}

func (s *fakeConnectionStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; !ok {
		return connection.ErrConnectionNotFound
	}
	delete(s.records, name)
	return nil
}

func (s *fakeConnectionStore) List(ctx context.Context, token string, limit int) (*connection.Page, error) {
	return s.ListByGateway(ctx, "", token, limit)
}

// ListByGateway lists every record when gatewayName is empty.
func (s *fakeConnectionStore) ListByGateway(_ context.Context, gatewayName, token string, _ int) (*connection.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name, c := range s.records {
		if name > token && (gatewayName == "" || c.GatewayName == gatewayName) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	page := &connection.Page{}
	for i, name := range names {
		if s.pageSize > 0 && i == s.pageSize {
			page.NextToken = page.Connections[i-1].Name
			break
		}
		page.Connections = append(page.Connections, *s.records[name].Clone())
	}
	return page, nil
}

// --- cloud collaborators ---

type fakeIdentity struct {
	log *callLog

	createErr   error
	attachErr   error
	detachErr   error
	deleteErr   error
	describeErr error
	listErr     error
	principals  []string
}

func (f *fakeIdentity) CreateThing(_ context.Context, name string) (string, error) {
	f.log.add("identity.CreateThing %s", name)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "arn:aws:iot:eu-west-1:123456789012:thing/" + name, nil
}

func (f *fakeIdentity) DeleteThing(_ context.Context, name string) error {
	f.log.add("identity.DeleteThing %s", name)
	return f.deleteErr
}

func (f *fakeIdentity) AttachPrincipal(_ context.Context, thing, principal string) error {
	f.log.add("identity.AttachPrincipal %s %s", thing, principal)
	return f.attachErr
}

func (f *fakeIdentity) DetachPrincipal(_ context.Context, thing, principal string) error {
	f.log.add("identity.DetachPrincipal %s %s", thing, principal)
	return f.detachErr
}

func (f *fakeIdentity) DescribeThing(_ context.Context, name string) (string, error) {
	f.log.add("identity.DescribeThing %s", name)
	if f.describeErr != nil {
		return "", f.describeErr
	}
	return "arn:aws:iot:eu-west-1:123456789012:thing/" + name, nil
}

func (f *fakeIdentity) ListPrincipals(_ context.Context, thing string) ([]string, error) {
	f.log.add("identity.ListPrincipals %s", thing)
	return f.principals, f.listErr
}

func (f *fakeIdentity) DescribeEndpoints(context.Context) (Endpoints, error) {
	f.log.add("identity.DescribeEndpoints")
	return Endpoints{Data: "data.iot.example.com", Credential: "cred.iot.example.com"}, nil
}

// fakeFleet serves pages; the token is the index of the next page.
type fakeFleet struct {
	log       *callLog
	pages     [][]FleetDevice
	listErr   error
	deleteErr error
}

func (f *fakeFleet) ListCoreDevices(_ context.Context, token string) (*FleetPage, error) {
	f.log.add("fleet.ListCoreDevices %s", token)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pages) == 0 {
		return &FleetPage{}, nil
	}
	i := 0
	if token != "" {
		i, _ = strconv.Atoi(token)
	}
	page := &FleetPage{Devices: f.pages[i]}
	if i+1 < len(f.pages) {
		page.NextToken = strconv.Itoa(i + 1)
	}
	return page, nil
}

func (f *fakeFleet) DeleteCoreDevice(_ context.Context, name string) error {
	f.log.add("fleet.DeleteCoreDevice %s", name)
	return f.deleteErr
}

func devices(names ...string) []FleetDevice {
	out := make([]FleetDevice, len(names))
	for i, n := range names {
		out[i] = FleetDevice{Name: n, Status: "HEALTHY", LastStatusUpdate: time.Unix(1700000000, 0).UTC()}
	}
	return out
}

type fakeCapability struct {
	log *callLog

	mu              sync.Mutex
	pages           [][]CapabilityGateway
	createErrs      []error
	deleteErr       error
	addErr          error
	deleteSourceErr error
	sources         map[string]map[string]connection.OPCUASource
}

func (f *fakeCapability) CreateGateway(_ context.Context, device string) (string, error) {
	f.log.add("capability.CreateGateway %s", device)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "gw-" + device, nil
}

func (f *fakeCapability) DeleteGateway(_ context.Context, id string) error {
	f.log.add("capability.DeleteGateway %s", id)
	return f.deleteErr
}

func (f *fakeCapability) ListGateways(_ context.Context, token string) (*GatewayPage, error) {
	f.log.add("capability.ListGateways %s", token)
	if len(f.pages) == 0 {
		return &GatewayPage{}, nil
	}
	i := 0
	if token != "" {
		i, _ = strconv.Atoi(token)
	}
	page := &GatewayPage{Gateways: f.pages[i]}
	if i+1 < len(f.pages) {
		page.NextToken = strconv.Itoa(i + 1)
	}
	return page, nil
}

func (f *fakeCapability) AddSource(_ context.Context, gatewayID string, source connection.OPCUASource) error {
	f.log.add("capability.AddSource %s %s", gatewayID, source.Name)
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sources == nil {
		f.sources = map[string]map[string]connection.OPCUASource{}
	}
	if f.sources[gatewayID] == nil {
		f.sources[gatewayID] = map[string]connection.OPCUASource{}
	}
	f.sources[gatewayID][source.Name] = source
	return nil
}

func (f *fakeCapability) DeleteSource(_ context.Context, gatewayID, serverName string) error {
	f.log.add("capability.DeleteSource %s %s", gatewayID, serverName)
	if f.deleteSourceErr != nil {
		return f.deleteSourceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sources[gatewayID][serverName]; !ok {
		return fmt.Errorf("source %s: %w", serverName, ErrResourceNotFound)
	}
	delete(f.sources[gatewayID], serverName)
	return nil
}

func (f *fakeCapability) GetSourceByServerName(_ context.Context, gatewayID, serverName string) (*connection.OPCUASource, error) {
	f.log.add("capability.GetSourceByServerName %s %s", gatewayID, serverName)
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sources[gatewayID][serverName]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", serverName, ErrResourceNotFound)
	}
	return &s, nil
}

type fakeObjects struct {
	log *callLog

	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	copyErr map[string]error
}

func (f *fakeObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	f.log.add("objects.GetObject %s", key)
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, ErrResourceNotFound)
	}
	return body, nil
}

func (f *fakeObjects) PutObject(_ context.Context, key string, body []byte) error {
	f.log.add("objects.PutObject %s", key)
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, key string) error {
	f.log.add("objects.DeleteObject %s", key)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) CopyObject(_ context.Context, src, dst string) error {
	f.log.add("objects.CopyObject %s", src)
	if err := f.copyErr[src]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[dst] = f.objects[src]
	return nil
}

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	log      *callLog
	err      error
	messages []published
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.log.add("publisher.Publish %s", topic)
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

type fakeWorker struct {
	log      *callLog
	err      error
	payloads [][]byte
}

func (f *fakeWorker) Invoke(_ context.Context, payload []byte) error {
	f.log.add("worker.Invoke")
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeMetrics struct {
	err    error
	events []map[string]string
	ids    []string
}

func (f *fakeMetrics) SendAnonymous(_ context.Context, event map[string]string, installationID string) error {
	f.events = append(f.events, event)
	f.ids = append(f.ids, installationID)
	return f.err
}

type fakeAudit struct {
	err     error
	entries []audit.Entry
}

func (f *fakeAudit) Create(_ context.Context, e *audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

// recordingLogger keeps warnings for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func (l *recordingLogger) warnCount(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, w := range l.warns {
		if w == msg {
			n++
		}
	}
	return n
}

// testEnv bundles an Orchestrator with its fakes.
type testEnv struct {
	o *Orchestrator

	log         *callLog
	logger      *recordingLogger
	gateways    *fakeGatewayStore
	connections *fakeConnectionStore
	identity    *fakeIdentity
	fleet       *fakeFleet
	capability  *fakeCapability
	objects     *fakeObjects
	publisher   *fakePublisher
	worker      *fakeWorker
	metrics     *fakeMetrics
	audit       *fakeAudit
}

const testPrincipal = "arn:aws:iot:eu-west-1:123456789012:cert/abc"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := &callLog{}
	env := &testEnv{
		log:         log,
		logger:      &recordingLogger{},
		gateways:    newFakeGatewayStore(),
		connections: newFakeConnectionStore(),
		identity:    &fakeIdentity{log: log},
		fleet:       &fakeFleet{log: log},
		capability:  &fakeCapability{log: log},
		objects: &fakeObjects{log: log, objects: map[string][]byte{
			"templates/install.sh": []byte("THING=%%THING_NAME%% DATA=%%DATA_ENDPOINT%% CRED=%%CRED_ENDPOINT%%"),
			"shared/connector.zip": []byte("zip"),
			"shared/settings.json": []byte("{}"),
		}},
		publisher: &fakePublisher{log: log},
		worker:    &fakeWorker{log: log},
		metrics:   &fakeMetrics{},
		audit:     &fakeAudit{},
	}

	o, err := New(Config{
		Principal:       testPrincipal,
		TemplatePrefix:  "templates",
		InstallPrefix:   "devices",
		DefaultScript:   "install.sh",
		SharedArtifacts: []string{"shared/connector.zip", "shared/settings.json"},
		RetryAttempts:   3,
		RetryStep:       0,
		InstallationID:  "install-1",
	}, Deps{
		Gateways:    env.gateways,
		Connections: env.connections,
		Identity:    env.identity,
		Fleet:       env.fleet,
		Capability:  env.capability,
		Objects:     env.objects,
		Publisher:   env.publisher,
		Worker:      env.worker,
		Metrics:     env.metrics,
		Audit:       env.audit,
		Logger:      env.logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.o = o
	return env
}

// downstreamCalls counts calls to the cloud collaborators.
func (e *testEnv) downstreamCalls() int {
	return e.log.count("identity.") + e.log.count("objects.") + e.log.count("capability.") +
		e.log.count("fleet.") + e.log.count("publisher.") + e.log.count("worker.")
}

func strPtr(s string) *string { return &s }

func opcdaConnection(name string) *connection.Connection {
	return &connection.Connection{
		Name:        name,
		Protocol:    connection.ProtocolOPCDA,
		Control:     connection.ControlDeploy,
		GatewayName: "line-1",
		SiteName:    "plant",
		Area:        "packing",
		Sinks:       connection.Sinks{SiteWise: true},
		Config: &connection.OPCDA{
			MachineIP:  "10.0.0.5",
			ServerName: "Matrikon.OPC.Simulation",
			Interval:   1,
			Iterations: 20,
			Tags:       []string{"Random.Int4", "Random.Real8"},
		},
	}
}

func opcuaConnection(name, server string) *connection.Connection {
	return &connection.Connection{
		Name:        name,
		Protocol:    connection.ProtocolOPCUA,
		Control:     connection.ControlDeploy,
		GatewayName: "line-1",
		Config: &connection.OPCUA{
			MachineIP:  "10.0.0.6",
			ServerName: server,
			Port:       49320,
		},
	}
}

// withGateway records gateway line-1, with a capability gateway id when
// capID is not empty.
func (e *testEnv) withGateway(capID string, count int) {
	g := gateway.Gateway{
		Name:            "line-1",
		CreatedBy:       gateway.CreatedBySystem,
		IdentityARN:     "arn:thing/line-1",
		ConnectionCount: count,
	}
	if capID != "" {
		g.SiteWiseGatewayID = strPtr(capID)
	}
	e.gateways.put(g)
}
