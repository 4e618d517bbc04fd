package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"

	"updatenotifier/internal/config"
	"updatenotifier/internal/deps"
)

const (
	statusNotifierWatcher = "org.kde.StatusNotifierWatcher"
	notificationsName     = "org.freedesktop.Notifications"
)

// CheckNtfy verifies the ntfy server behind topicURL answers its health
// endpoint.
func CheckNtfy(ctx context.Context, topicURL string) Result {
	const name = "ntfy"

	u, err := url.Parse(topicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url %q", topicURL)}
	}
	health := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/v1/health"}).String()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckBusName verifies that busName has an owner on the session bus.
func CheckBusName(conn *dbus.Conn, name, busName string) Result {
	if conn == nil {
		return Result{Name: name, Detail: "no session bus"}
	}
	var has bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, busName).Store(&has); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query %s: %v", busName, err)}
	}
	if !has {
		return Result{Name: name, Detail: busName + " not on the session bus"}
	}
	return Result{Name: name, Passed: true, Detail: busName}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadable verifies that the directory exists and can be listed.
func CheckReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckSystemDeps evaluates the configured helpers. Both the daemon startup
// snapshot and the CLI doctor command use it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.HelperRequirements(cfg.Helpers))
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (server unreachable)"
	}
	return err.Error()
}
