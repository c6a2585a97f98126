package main

import (
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"syscall"

	"bazil.org/fuse"
	"github.com/sirupsen/logrus"
)

const stackTraceBufferSize = 1 << 24

// helperFDEnv names the environment variable mount.zipvfs sets to the
// number of an inherited pipe write-end; writing a single byte there lets
// the mount helper return as soon as the mount is ready, instead of
// falling back to polling /proc/self/mountinfo.
const helperFDEnv = "ZIPVFS_HELPER_FD"

// signalHelperReady notifies a waiting mount.zipvfs helper, if any, that
// the filesystem is mounted and ready to serve requests.
func signalHelperReady() {
	fdStr := os.Getenv(helperFDEnv)
	if fdStr == "" {
		return
	}

	fd, err := strconv.Atoi(fdStr)
	if err != nil {
		return
	}

	f := os.NewFile(uintptr(fd), "helper-signal")
	if f == nil {
		return
	}
	defer f.Close()

	_, _ = f.Write([]byte{1})
}

// setupSignalHandlers wires the same signals the teacher's zipfuse
// binary observes: SIGINT/SIGTERM for a graceful unmount, SIGUSR1 to force
// a GC cycle, and SIGUSR2 to dump a stack trace to stderr.
func setupSignalHandlers(log *logrus.Logger, mountDir string) {
	unmount := make(chan os.Signal, 1)
	signal.Notify(unmount, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer recoverSignalsPanic(log)

		for range unmount {
			log.Info("signal received, unmounting the filesystem...")

			if err := fuse.Unmount(mountDir); err != nil {
				log.Errorf("unmount error: %v (try again later)", err)

				continue
			}

			return
		}
	}()

	gcSig := make(chan os.Signal, 1)
	signal.Notify(gcSig, syscall.SIGUSR1)

	go func() {
		defer recoverSignalsPanic(log)

		for range gcSig {
			log.Info("signal received, forcing garbage collection...")
			runtime.GC()
			debug.FreeOSMemory()
		}
	}()

	stackSig := make(chan os.Signal, 1)
	signal.Notify(stackSig, syscall.SIGUSR2)

	go func() {
		defer recoverSignalsPanic(log)

		for range stackSig {
			log.Info("signal received, printing stacktrace to standard error...")
			buf := make([]byte, stackTraceBufferSize)
			n := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:n]) //nolint:errcheck
		}
	}()
}

func recoverSignalsPanic(log *logrus.Logger) {
	if r := recover(); r != nil {
		log.Errorf("(signals) PANIC: %v\n%s", r, debug.Stack())
	}
}
