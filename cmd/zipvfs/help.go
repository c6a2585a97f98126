package main

const (
	helpTextUse = "zipvfs <root-dir> <mount-dir>"

	helpTextShort = "a read-only FUSE filesystem presenting ZIP archives as directories"

	helpTextLong = `zipvfs is a read-only FUSE filesystem that mirrors another directory tree,
but additionally presents any ZIP archive found within it as a browseable
directory of its contents - readdir, getattr, open and read all see straight
through the archive container with no extraction step a client can observe.

When mounted, the following OS signals are observed at runtime:
- SIGTERM/SIGINT for gracefully unmounting the filesystem
- SIGUSR1 for forcing a garbage collection run within Go
- SIGUSR2 for printing a stack trace to standard error (stderr)

When enabled via "-o webserver=ADDR", the diagnostics server exposes:
- "/stats" for a JSON snapshot of cache, handle-table and probe counters
- "/logs" for the most recent lines of the log ring buffer

Recognized -o options: foreground, debug, allowother, async, striprename,
cachesize=N, webserver=ADDR. Unrecognized options are logged and dropped.`
)
