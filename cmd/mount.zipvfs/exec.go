//nolint:mnd,err113,noctx
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// BuildCommand returns the zipvfs invocation this helper execs.
func (mh *MountHelper) BuildCommand() []string {
	args := []string{mh.Binary, mh.Source, mh.Mountpoint}

	if len(mh.Forwarded) > 0 {
		args = append(args, "-o", strings.Join(mh.Forwarded, ","))
	}

	return args
}

// Execute execs zipvfs (optionally as another user), blocking until the
// mount either becomes ready or times out.
func (mh *MountHelper) Execute() error {
	mh.setupEnvironment()

	cmdArgs := mh.BuildCommand()
	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...) //nolint:gosec

	spa := &syscall.SysProcAttr{Setsid: true}

	if mh.Setuid != "" {
		if uid, gid, err := resolveUser(mh.Setuid); err == nil {
			spa.Credential = &syscall.Credential{Uid: uid, Gid: gid}
		} else {
			cmd = mh.suWrappedCommand(cmdArgs)
		}
	}

	cmd.SysProcAttr = spa

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd.Stdin, cmd.Stdout, cmd.Stderr = devNull, devNull, devNull

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("pipe error: %w", err)
	}
	defer r.Close()

	cmd.Env = append(os.Environ(), "ZIPVFS_HELPER_FD=3")
	cmd.ExtraFiles = []*os.File{w}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("process error: %w", err)
	}
	_ = cmd.Process.Release()
	w.Close()

	if err := mh.waitForMount(r); err != nil {
		return fmt.Errorf("mount error: %w", err)
	}

	return nil
}

// suWrappedCommand falls back to "su - USER -c ..." when the UID/GID could
// not be resolved directly (e.g. running unprivileged against nsswitch
// sources only readable by root).
func (mh *MountHelper) suWrappedCommand(cmdArgs []string) *exec.Cmd {
	quoted := make([]string, len(cmdArgs))
	for i, arg := range cmdArgs {
		quoted[i] = shellescape.Quote(arg)
	}

	inner := strings.Join(quoted, " ")
	outer := fmt.Sprintf("su - %s -c %s", shellescape.Quote(mh.Setuid), shellescape.Quote(inner))

	return exec.Command("/bin/sh", "-c", outer) //nolint:gosec
}

func (mh *MountHelper) setupEnvironment() {
	if mh.Setuid == "" && os.Getenv("HOME") == "" {
		os.Setenv("HOME", "/root")
	}

	additional := "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	if current := os.Getenv("PATH"); current == "" {
		os.Setenv("PATH", additional)
	} else {
		os.Setenv("PATH", current+":"+additional)
	}
}

// waitForMount returns once either r receives the helper-ready byte, or
// the mount appears in /proc/self/mountinfo, or mh.Timeout elapses.
func (mh *MountHelper) waitForMount(r io.Reader) error {
	signalDone := make(chan error, 1)

	go func() {
		defer close(signalDone)

		buf := make([]byte, 1)
		_, err := r.Read(buf)
		signalDone <- err
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	totalTimeout := time.After(mh.Timeout)

	for {
		select {
		case err := <-signalDone:
			if err == nil {
				return nil
			}

			signalDone = nil

		case <-ticker.C:
			if mounted, _ := mh.checkMountTable(); mounted {
				return nil
			}

		case <-totalTimeout:
			if mounted, _ := mh.checkMountTable(); mounted {
				return nil
			}

			return fmt.Errorf(helpErrMountTimeout, int(mh.Timeout.Seconds())) //nolint:govet
		}
	}
}

func (mh *MountHelper) checkMountTable() (bool, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return false, fmt.Errorf("cannot open /proc/self/mountinfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), " "+mh.Mountpoint+" ") {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("error reading /proc/self/mountinfo: %w", err)
	}

	return false, nil
}
