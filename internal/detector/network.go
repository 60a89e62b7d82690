package detector

const (
	zoomMediaPort = 8801
	stunPortLow   = 3478
	stunPortHigh  = 3481
)

// EvaluateNetwork reports whether conns indicate an in-progress native-app
// meeting for svc. Google Meet has no native tier and is always inactive.
func (r Rules) EvaluateNetwork(conns []ConnectionObservation, svc Service) bool {
	switch svc {
	case ServiceZoom:
		for _, c := range conns {
			// Zoom media runs over UDP 8801 regardless of peer; UDP rarely
			// reports a state, so only an explicit close disqualifies it.
			if c.Protocol == ProtocolUDP &&
				(c.LocalPort == zoomMediaPort || c.RemotePort == zoomMediaPort) &&
				c.State != StateClosed {
				return true
			}
		}
		return false

	case ServiceMicrosoftTeams, ServiceWebex:
		for _, c := range conns {
			if c.State != StateEstablished {
				continue
			}
			if isSTUNPort(c.LocalPort) || isSTUNPort(c.RemotePort) {
				return true
			}
			if r.isMediaHost(svc, c.RemoteHost) {
				return true
			}
		}
		return false
	}
	return false
}

// EvaluateNetwork evaluates conns against the default rules
func EvaluateNetwork(conns []ConnectionObservation, svc Service) bool {
	return DefaultRules().EvaluateNetwork(conns, svc)
}

func isSTUNPort(p int) bool {
	return p >= stunPortLow && p <= stunPortHigh
}
