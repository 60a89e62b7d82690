package collector

import (
	"net"

	"github.com/tiroq/meetsense/internal/detector"
)

// Kernel socket states as reported in /proc/net/{tcp,udp}
const (
	kernelEstablished = 0x01
	kernelFinWait1    = 0x04
	kernelFinWait2    = 0x05
	kernelTimeWait    = 0x06
	kernelClose       = 0x07
	kernelCloseWait   = 0x08
	kernelLastAck     = 0x09
	kernelClosing     = 0x0B
)

func tcpState(st uint64) detector.ConnState {
	switch st {
	case kernelEstablished:
		return detector.StateEstablished
	case kernelFinWait1, kernelFinWait2, kernelTimeWait, kernelClose, kernelCloseWait, kernelLastAck, kernelClosing:
		return detector.StateClosed
	default:
		return detector.StateUnknown
	}
}

// udpState maps connected UDP sockets to Established. The kernel reports
// every unconnected UDP socket as CLOSE, which says nothing about traffic,
// so those stay Unknown.
func udpState(st uint64) detector.ConnState {
	if st == kernelEstablished {
		return detector.StateEstablished
	}
	return detector.StateUnknown
}

// remoteHost renders a peer address, empty for the unspecified address
func remoteHost(ip net.IP) string {
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
