package collector

import (
	"strconv"
	"strings"

	"github.com/tiroq/meetsense/internal/detector"
)

// ParseLsof converts `lsof -i -P -n` output into connection observations.
// Lines that are not TCP or UDP sockets are skipped.
//
//	COMMAND   PID USER   FD   TYPE DEVICE SIZE/OFF NODE NAME
//	zoom.us  4242 me     23u  IPv4 0x1234      0t0  UDP 10.0.0.2:53127->144.195.35.1:8801
func ParseLsof(output string) []detector.ConnectionObservation {
	var conns []detector.ConnectionObservation
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "COMMAND") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}

		var proto detector.Protocol
		switch fields[7] {
		case "TCP":
			proto = detector.ProtocolTCP
		case "UDP":
			proto = detector.ProtocolUDP
		default:
			continue
		}

		conn := parseLsofName(strings.Join(fields[8:], " "))
		conn.Protocol = proto
		conns = append(conns, conn)
	}
	return conns
}

// parseLsofName handles the NAME column: "local->remote (STATE)", or a bare
// "local (STATE)" for listening and unconnected sockets
func parseLsofName(name string) detector.ConnectionObservation {
	var conn detector.ConnectionObservation
	conn.State = detector.StateUnknown

	if i := strings.Index(name, " ("); i >= 0 {
		conn.State = lsofState(strings.TrimSuffix(name[i+2:], ")"))
		name = name[:i]
	}

	local, remote, connected := strings.Cut(name, "->")
	_, conn.LocalPort = splitHostPort(local)
	if connected {
		conn.RemoteHost, conn.RemotePort = splitHostPort(remote)
	}
	return conn
}

// splitHostPort splits "host:port" and "[v6]:port"; unparseable ports are 0
func splitHostPort(s string) (string, int) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	host := strings.TrimSuffix(strings.TrimPrefix(s[:i], "["), "]")
	if host == "*" {
		host = ""
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		port = 0
	}
	return host, port
}

func lsofState(s string) detector.ConnState {
	switch s {
	case "ESTABLISHED":
		return detector.StateEstablished
	case "CLOSED", "CLOSE_WAIT", "TIME_WAIT", "FIN_WAIT_1", "FIN_WAIT_2", "LAST_ACK", "CLOSING":
		return detector.StateClosed
	default:
		return detector.StateUnknown
	}
}
