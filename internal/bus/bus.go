// Package bus is the daemon's control plane: a unix socket carrying
// single-byte commands, plus the pidfile that guards against double
// starts.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const SockName = "control.sock"
const PidName = "hushtype.pid"
const ProtoVer = "0.1"

// Commands accepted on the control socket.
const (
	CmdToggle  byte = 't'
	CmdCancel  byte = 'c'
	CmdStatus  byte = 's'
	CmdPlugins byte = 'p'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

// ~/.cache/hushtype/control.sock
func SockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hushtype", SockName), nil
}

// ~/.cache/hushtype/hushtype.pid
func PidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hushtype", PidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", sp)
}

// SendCommand writes one command byte and returns the daemon's one-line
// reply.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable: %w", err)
	}
	defer c.Close()

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return strings.TrimRight(resp, "\n"), err
}

// PidFile manages the daemon's pidfile at a fixed path, so tests can
// point it at a temp directory.
type PidFile struct {
	Path string
}

func DefaultPidFile() (*PidFile, error) {
	p, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &PidFile{Path: p}, nil
}

func (p *PidFile) Create() error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *PidFile) Remove() error {
	return os.Remove(p.Path)
}

// CheckExisting errors if a live daemon owns the pidfile. Stale or
// malformed pidfiles are removed silently.
func (p *PidFile) CheckExisting() error {
	data, err := os.ReadFile(p.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !isProcessAlive(pid) {
		_ = os.Remove(p.Path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
