package connection

func opcdaConnection(name string) *Connection {
	return &Connection{
		Name:        name,
		Protocol:    ProtocolOPCDA,
		Control:     ControlDeploy,
		GatewayName: "line-1",
		SiteName:    "plant",
		Area:        "packing",
		Process:     "fill",
		MachineName: "filler-3",
		LogLevel:    "INFO",
		Sinks:       Sinks{SiteWise: true, Topic: true},
		Config: &OPCDA{
			MachineIP:  "10.0.0.5",
			ServerName: "Matrikon.OPC.Simulation",
			Interval:   1,
			Iterations: 20,
			Tags:       []string{"Random.Int4"},
		},
	}
}

func opcuaConnection(name string) *Connection {
	return &Connection{
		Name:        name,
		Protocol:    ProtocolOPCUA,
		Control:     ControlDeploy,
		GatewayName: "line-1",
		Config: &OPCUA{
			MachineIP:  "10.0.0.6",
			ServerName: "kepware",
			Port:       49320,
		},
	}
}

func osipiConnection(name string) *Connection {
	return &Connection{
		Name:        name,
		Protocol:    ProtocolOSIPI,
		Control:     ControlDeploy,
		GatewayName: "line-1",
		Config: &OSIPI{
			APIURL:     "https://pi.example.com/piwebapi",
			ServerName: "pi-archive",
			AuthMode:   AuthBasic,
			Username:   "reader",
			Password:   "secret",
			Tags:       []string{"sinusoid"},
		},
	}
}
