//go:build linux

package collector

import (
	"context"
	"encoding/binary"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"github.com/tiroq/meetsense/internal/detector"
)

// linuxCollector reads processes and sockets from procfs, the focused
// window from X11 and the microphone from PulseAudio/PipeWire.
type linuxCollector struct {
	fs            procfs.FS
	devToolsAddr  string
	httpClient    *http.Client
	cameraProcess func(name string) bool
}

func newPlatform(opts Options) (detector.Collector, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, errors.Wrap(err, "open procfs")
	}
	return &linuxCollector{
		fs:            fs,
		devToolsAddr:  opts.DevToolsAddr,
		httpClient:    opts.HTTPClient,
		cameraProcess: opts.CameraProcess,
	}, nil
}

func (c *linuxCollector) RunningProcesses(ctx context.Context) ([]string, error) {
	procs, err := c.fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Processes can exit between listing and reading
		comm, err := p.Comm()
		if err != nil {
			continue
		}
		names = append(names, comm)
		// comm is truncated to 15 bytes; the executable keeps the full name
		if exe, err := p.Executable(); err == nil && exe != "" {
			names = append(names, filepath.Base(exe))
		}
	}
	return dedupe(names), nil
}

func (c *linuxCollector) ListNetworkConnections(ctx context.Context) ([]detector.ConnectionObservation, error) {
	var conns []detector.ConnectionObservation

	tcpSources := []func() (procfs.NetTCP, error){c.fs.NetTCP, c.fs.NetTCP6}
	for i, read := range tcpSources {
		lines, err := read()
		if err != nil {
			// IPv6 may be disabled
			if i > 0 && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.Wrap(err, "read tcp sockets")
		}
		for _, l := range lines {
			conns = append(conns, detector.ConnectionObservation{
				Protocol:   detector.ProtocolTCP,
				LocalPort:  int(l.LocalPort),
				RemotePort: int(l.RemPort),
				RemoteHost: remoteHost(l.RemAddr),
				State:      tcpState(l.St),
			})
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	udpSources := []func() (procfs.NetUDP, error){c.fs.NetUDP, c.fs.NetUDP6}
	for i, read := range udpSources {
		lines, err := read()
		if err != nil {
			if i > 0 && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.Wrap(err, "read udp sockets")
		}
		for _, l := range lines {
			conns = append(conns, detector.ConnectionObservation{
				Protocol:   detector.ProtocolUDP,
				LocalPort:  int(l.LocalPort),
				RemotePort: int(l.RemPort),
				RemoteHost: remoteHost(l.RemAddr),
				State:      udpState(l.St),
			})
		}
	}
	return conns, nil
}

// ForegroundAppName returns the WM_CLASS of the active X11 window, falling
// back to its title. Wayland sessions without XWayland report an error.
func (c *linuxCollector) ForegroundAppName(ctx context.Context) (string, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return "", errors.Wrap(err, "connect to X server")
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	atom := func(name string) (xproto.Atom, error) {
		reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
		if err != nil {
			return 0, errors.Wrapf(err, "intern %s", name)
		}
		return reply.Atom, nil
	}

	activeAtom, err := atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(conn, false, root, activeAtom, xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return "", errors.Wrap(err, "read _NET_ACTIVE_WINDOW")
	}
	if len(reply.Value) < 4 {
		return "", nil
	}
	window := xproto.Window(binary.LittleEndian.Uint32(reply.Value))
	if window == 0 {
		return "", nil
	}

	if reply, err := xproto.GetProperty(conn, false, window, xproto.AtomWmClass, xproto.AtomString, 0, 256).Reply(); err == nil && len(reply.Value) > 0 {
		// WM_CLASS is "instance\x00class\x00"
		parts := strings.Split(strings.TrimRight(string(reply.Value), "\x00"), "\x00")
		if class := parts[len(parts)-1]; class != "" {
			return class, nil
		}
	}

	if reply, err := xproto.GetProperty(conn, false, window, xproto.AtomWmName, xproto.AtomString, 0, 256).Reply(); err == nil {
		return strings.TrimRight(string(reply.Value), "\x00"), nil
	}
	return "", nil
}

// BrowserTabURLs reads tabs from a Chromium remote debugging endpoint; Linux
// browsers offer no scripting bridge comparable to AppleScript
func (c *linuxCollector) BrowserTabURLs(ctx context.Context) ([]string, error) {
	return devToolsTabs(ctx, c.httpClient, c.devToolsAddr)
}

// MicrophoneActive reports whether any capture stream is open
func (c *linuxCollector) MicrophoneActive(ctx context.Context) (bool, error) {
	out, err := runCommand(ctx, "pactl", "list", "short", "source-outputs")
	if err != nil {
		return false, err
	}
	return len(splitLines(string(out))) > 0, nil
}

// CameraActive reports whether a browser or meeting client holds a
// /dev/video* descriptor. Other processes are not scanned.
func (c *linuxCollector) CameraActive(ctx context.Context) (bool, error) {
	procs, err := c.fs.AllProcs()
	if err != nil {
		return false, errors.Wrap(err, "list processes")
	}
	for _, p := range procs {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if !c.isCameraCandidate(p) {
			continue
		}
		// Other users' fds are unreadable without privileges
		targets, err := p.FileDescriptorTargets()
		if err != nil {
			continue
		}
		for _, t := range targets {
			if strings.HasPrefix(t, "/dev/video") {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *linuxCollector) isCameraCandidate(p procfs.Proc) bool {
	if c.cameraProcess == nil {
		return false
	}
	if comm, err := p.Comm(); err == nil && c.cameraProcess(comm) {
		return true
	}
	exe, err := p.Executable()
	return err == nil && exe != "" && c.cameraProcess(filepath.Base(exe))
}
