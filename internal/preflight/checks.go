package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckBinary verifies that binary resolves on PATH.
func CheckBinary(name, binary string, optional bool) Result {
	result := Result{Name: name, Optional: optional}
	if binary == "" {
		result.Detail = "not configured"
		return result
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		result.Detail = fmt.Sprintf("%s not found on PATH", binary)
		return result
	}
	result.Passed = true
	result.Detail = path
	return result
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableParent passes when path exists as a writable directory, or
// when its nearest existing ancestor is writable so it can be created.
func CheckWritableParent(name, path string) Result {
	dir := path
	for {
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		dir = parent
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, dir, err)}
	}
	if dir == path {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckSources verifies every unit source file exists.
func CheckSources(name string, sources map[string]string) Result {
	var missing []string
	for id, path := range sources {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d missing: %v", len(missing), sortedCopy(missing))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d sources present", len(sources))}
}
