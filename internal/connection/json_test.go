package connection

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConnection_UnmarshalJSON(t *testing.T) {
	body := `{
		"connection_name": "filler",
		"protocol": "opcda",
		"control": "deploy",
		"gateway_name": "line-1",
		"site_name": "plant",
		"send_to_topic": true,
		"opc_da": {
			"machine_ip": "10.0.0.5",
			"server_name": "Matrikon",
			"interval": 1,
			"iterations": 20,
			"tags": ["Random.Int4"]
		}
	}`

	var c Connection
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c.Name != "filler" || c.GatewayName != "line-1" || c.SiteName != "plant" {
		t.Errorf("descriptors = %+v", c)
	}
	if !c.Sinks.Topic || c.Sinks.SiteWise {
		t.Errorf("Sinks = %+v, want only Topic", c.Sinks)
	}
	da, ok := c.Config.(*OPCDA)
	if !ok {
		t.Fatalf("Config = %T, want *OPCDA", c.Config)
	}
	if da.ServerName != "Matrikon" || da.Iterations != 20 {
		t.Errorf("OPCDA = %+v", da)
	}
	if err := ValidateDefinition(&c); err != nil {
		t.Errorf("ValidateDefinition() error = %v", err)
	}
}

func TestConnection_UnmarshalJSON_NoBlock(t *testing.T) {
	var c Connection
	if err := json.Unmarshal([]byte(`{"connection_name":"filler","control":"start"}`), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c.Config != nil {
		t.Errorf("Config = %T, want nil", c.Config)
	}
	if c.Control != ControlStart {
		t.Errorf("Control = %q, want start", c.Control)
	}
}

func TestConnection_UnmarshalJSON_TwoBlocks(t *testing.T) {
	body := `{"connection_name":"x","protocol":"opcda","opc_da":{},"opc_ua":{}}`

	var c Connection
	err := json.Unmarshal([]byte(body), &c)
	if !errors.Is(err, ErrProtocolBlock) {
		t.Errorf("Unmarshal() error = %v, want ErrProtocolBlock", err)
	}
}

func TestConnection_MarshalJSON_BlockKey(t *testing.T) {
	tests := []struct {
		conn    *Connection
		wantKey string
	}{
		{opcdaConnection("a"), `"opc_da":`},
		{opcuaConnection("a"), `"opc_ua":`},
		{osipiConnection("a"), `"osi_pi":`},
	}

	for _, tt := range tests {
		t.Run(string(tt.conn.Protocol), func(t *testing.T) {
			data, err := json.Marshal(tt.conn)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			s := string(data)
			if !strings.Contains(s, tt.wantKey) {
				t.Errorf("Marshal() = %s, want key %s", s, tt.wantKey)
			}
			if strings.Count(s, `"opc_`)+strings.Count(s, `"osi_`) != 1 {
				t.Errorf("Marshal() = %s, want exactly one protocol block", s)
			}
			if strings.Contains(s, "created_at") {
				t.Errorf("Marshal() = %s, zero timestamps should be omitted", s)
			}
		})
	}
}

func TestMarshalConfig_RestoresStoredBlock(t *testing.T) {
	c := opcuaConnection("a")
	c.Config.(*OPCUA).Source = &OPCUASource{Name: "kepware"}

	data, err := marshalConfig(c.Config)
	if err != nil {
		t.Fatalf("marshalConfig() error = %v", err)
	}
	cfg, err := unmarshalConfig(ProtocolOPCUA, data)
	if err != nil {
		t.Fatalf("unmarshalConfig() error = %v", err)
	}
	ua := cfg.(*OPCUA)
	if ua.Source == nil || ua.Source.Name != "kepware" || ua.Port != 49320 {
		t.Errorf("unmarshalConfig() = %+v", ua)
	}

	if _, err := unmarshalConfig(ProtocolOPCDA, data); !errors.Is(err, ErrProtocolBlock) {
		t.Errorf("unmarshalConfig(opcda) error = %v, want ErrProtocolBlock", err)
	}
}

func TestConnection_UnmarshalJSON_SuppliedSinks(t *testing.T) {
	body := `{"connection_name": "filler", "control": "start", "send_to_kinesis": true, "send_to_sitewise": false}`

	var c Connection
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	f := c.SuppliedSinks
	if f.Kinesis == nil || !*f.Kinesis {
		t.Errorf("SuppliedSinks.Kinesis = %v, want true", f.Kinesis)
	}
	if f.SiteWise == nil || *f.SiteWise {
		t.Errorf("SuppliedSinks.SiteWise = %v, want false", f.SiteWise)
	}
	if f.Topic != nil || f.Timestream != nil {
		t.Errorf("omitted flags marked as supplied: %+v", f)
	}
}
