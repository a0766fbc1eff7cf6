package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// lockFile is an O_EXCL lock file holding the owner's pid. It coordinates
// mcp-clarify processes on one host that share state files.
type lockFile struct {
	path string
	// maxAge applies only when the owner pid cannot be read.
	maxAge time.Duration
}

// hold runs fn while holding the lock. It waits up to wait for a busy lock;
// a zero wait tries once. It reports whether fn ran.
func (l lockFile) hold(wait time.Duration, fn func() error) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, err
	}

	deadline := time.Now().Add(wait)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			_ = f.Close()
			defer os.Remove(l.path)
			return true, fn()
		}
		if !errors.Is(err, os.ErrExist) {
			return false, err
		}
		if l.stale() {
			l.breakStale()
			continue
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// stale reports a lock whose owner process is gone, or one older than
// maxAge when the owner cannot be determined.
func (l lockFile) stale() bool {
	st, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	raw, _ := os.ReadFile(l.path)
	if pid, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && pid > 0 && runtime.GOOS != "windows" {
		return !processExists(pid)
	}
	return time.Since(st.ModTime()) > l.maxAge
}

// breakStale moves the lock aside before judging it again, so a fresh lock
// taken by another process after stale() ran is put back, not deleted.
func (l lockFile) breakStale() {
	aside := fmt.Sprintf("%s.stale-%d-%d", l.path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(l.path, aside); err != nil {
		return
	}
	if !(lockFile{path: aside, maxAge: l.maxAge}).stale() {
		_ = os.Link(aside, l.path)
	}
	_ = os.Remove(aside)
}

func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EPERM
}

// writeFileAtomic replaces path through a sibling temp file.
func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
