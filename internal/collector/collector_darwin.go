//go:build darwin

package collector

/*
#cgo LDFLAGS: -framework CoreMediaIO -framework CoreFoundation -framework CoreAudio

#include <CoreMediaIO/CMIOHardware.h>
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>

// Returns 1 when any camera is running somewhere, 0 when none, -1 on error
static int cameraRunning() {
    CMIOObjectPropertyAddress prop = {
        kCMIOHardwarePropertyDevices,
        kCMIOObjectPropertyScopeGlobal,
        kCMIOObjectPropertyElementMain
    };

    UInt32 dataSize = 0;
    if (CMIOObjectGetPropertyDataSize(kCMIOObjectSystemObject, &prop, 0, NULL, &dataSize) != kCMIOHardwareNoError) {
        return -1;
    }
    int count = dataSize / sizeof(CMIODeviceID);
    if (count == 0) {
        return 0;
    }

    CMIODeviceID *devices = (CMIODeviceID *)malloc(dataSize);
    if (devices == NULL) {
        return -1;
    }
    if (CMIOObjectGetPropertyData(kCMIOObjectSystemObject, &prop, 0, NULL, dataSize, &dataSize, devices) != kCMIOHardwareNoError) {
        free(devices);
        return -1;
    }

    CMIOObjectPropertyAddress running = {
        kCMIODevicePropertyDeviceIsRunningSomewhere,
        kCMIOObjectPropertyScopeGlobal,
        kCMIOObjectPropertyElementMain
    };

    int inUse = 0;
    for (int i = 0; i < count && !inUse; i++) {
        UInt32 isRunning = 0;
        UInt32 size = sizeof(isRunning);
        if (CMIOObjectGetPropertyData(devices[i], &running, 0, NULL, size, &size, &isRunning) == kCMIOHardwareNoError && isRunning) {
            inUse = 1;
        }
    }
    free(devices);
    return inUse;
}

// Returns 1 when any input device is running somewhere, 0 when none, -1 on error
static int microphoneRunning() {
    AudioObjectPropertyAddress prop = {
        kAudioHardwarePropertyDevices,
        kAudioObjectPropertyScopeGlobal,
        kAudioObjectPropertyElementMain
    };

    UInt32 dataSize = 0;
    if (AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &prop, 0, NULL, &dataSize) != noErr) {
        return -1;
    }
    int count = dataSize / sizeof(AudioDeviceID);
    if (count == 0) {
        return 0;
    }

    AudioDeviceID *devices = (AudioDeviceID *)malloc(dataSize);
    if (devices == NULL) {
        return -1;
    }
    if (AudioObjectGetPropertyData(kAudioObjectSystemObject, &prop, 0, NULL, &dataSize, devices) != noErr) {
        free(devices);
        return -1;
    }

    int inUse = 0;
    for (int i = 0; i < count && !inUse; i++) {
        AudioObjectPropertyAddress streams = {
            kAudioDevicePropertyStreams,
            kAudioDevicePropertyScopeInput,
            kAudioObjectPropertyElementMain
        };
        UInt32 streamSize = 0;
        if (AudioObjectGetPropertyDataSize(devices[i], &streams, 0, NULL, &streamSize) != noErr || streamSize == 0) {
            continue;
        }

        AudioObjectPropertyAddress running = {
            kAudioDevicePropertyDeviceIsRunningSomewhere,
            kAudioDevicePropertyScopeInput,
            kAudioObjectPropertyElementMain
        };
        UInt32 isRunning = 0;
        UInt32 size = sizeof(isRunning);
        if (AudioObjectGetPropertyData(devices[i], &running, 0, NULL, &size, &isRunning) == noErr && isRunning) {
            inUse = 1;
        }
    }
    free(devices);
    return inUse;
}
*/
import "C"

import (
	"context"
	"net/http"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/progrium/darwinkit/macos/appkit"
	"github.com/tiroq/meetsense/internal/detector"
)

// tabScripts read every tab URL of a browser, one per line. The running
// guard keeps osascript from launching a closed browser.
var tabScripts = map[string]string{
	"Google Chrome":  chromiumTabScript("Google Chrome"),
	"Microsoft Edge": chromiumTabScript("Microsoft Edge"),
	"Brave Browser":  chromiumTabScript("Brave Browser"),
	"Arc":            chromiumTabScript("Arc"),
	"Safari": `if application "Safari" is running then
	tell application "Safari"
		set urlList to {}
		repeat with w in windows
			repeat with t in tabs of w
				set end of urlList to URL of t
			end repeat
		end repeat
		set AppleScript's text item delimiters to linefeed
		return urlList as string
	end tell
end if`,
}

func chromiumTabScript(app string) string {
	return `if application "` + app + `" is running then
	tell application "` + app + `"
		set urlList to {}
		repeat with w in windows
			repeat with t in tabs of w
				set end of urlList to URL of t
			end repeat
		end repeat
		set AppleScript's text item delimiters to linefeed
		return urlList as string
	end tell
end if`
}

// darwinCollector uses NSWorkspace for applications, lsof for sockets,
// AppleScript for browser tabs and CoreAudio/CoreMediaIO for devices.
type darwinCollector struct {
	workspace    appkit.Workspace
	devToolsAddr string
	httpClient   *http.Client
}

func newPlatform(opts Options) (detector.Collector, error) {
	return &darwinCollector{
		workspace:    appkit.Workspace_SharedWorkspace(),
		devToolsAddr: opts.DevToolsAddr,
		httpClient:   opts.HTTPClient,
	}, nil
}

// RunningProcesses merges GUI applications (localized name and bundle id)
// with BSD process names, which include helpers like CptHost
func (c *darwinCollector) RunningProcesses(ctx context.Context) ([]string, error) {
	var names []string
	for _, app := range c.workspace.RunningApplications() {
		if app.Ptr() == nil {
			continue
		}
		names = append(names, app.LocalizedName(), app.BundleIdentifier())
	}

	out, err := runCommand(ctx, "ps", "-axo", "comm=")
	if err != nil {
		if len(names) == 0 {
			return nil, err
		}
		return dedupe(names), nil
	}
	for _, line := range splitLines(string(out)) {
		names = append(names, filepath.Base(line))
	}
	return dedupe(names), nil
}

func (c *darwinCollector) ListNetworkConnections(ctx context.Context) ([]detector.ConnectionObservation, error) {
	out, err := runCommand(ctx, "lsof", "-i", "-P", "-n")
	if err != nil {
		// lsof exits 1 when it finds nothing to report
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	return ParseLsof(string(out)), nil
}

func (c *darwinCollector) ForegroundAppName(context.Context) (string, error) {
	app := c.workspace.FrontmostApplication()
	if app.Ptr() == nil {
		return "", nil
	}
	return app.LocalizedName(), nil
}

// BrowserTabURLs fails only when every browser query failed
func (c *darwinCollector) BrowserTabURLs(ctx context.Context) ([]string, error) {
	var (
		urls     []string
		firstErr error
		failures int
	)
	for browser, script := range tabScripts {
		out, err := runCommand(ctx, "osascript", "-e", script)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "read %s tabs", browser)
			}
			continue
		}
		urls = append(urls, splitLines(string(out))...)
	}

	if extra, err := devToolsTabs(ctx, c.httpClient, c.devToolsAddr); err == nil {
		urls = append(urls, extra...)
	}

	if failures == len(tabScripts) {
		return nil, firstErr
	}
	return dedupe(urls), nil
}

func (c *darwinCollector) MicrophoneActive(context.Context) (bool, error) {
	switch C.microphoneRunning() {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.New("CoreAudio device query failed")
	}
}

func (c *darwinCollector) CameraActive(context.Context) (bool, error) {
	switch C.cameraRunning() {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.New("CoreMediaIO device query failed")
	}
}
