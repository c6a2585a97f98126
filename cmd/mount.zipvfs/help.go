package main

const helpTextLong = `%s (%s) - FUSE mount helper

This program is a helper for the mount/fstab mechanism. It is normally
located in /sbin or another directory searched by mount(8) for filesystem
helpers, and is not intended to be invoked directly by end users.

Usage:
  %s source mountpoint [-o key[=value],key[=value],...]

For running the filesystem as another (e.g. unprivileged) user:
  %s source mountpoint -o setuid=USER[,key[=value],...]

Example (fstab entry):
  /mnt/zips   /mnt/zipvfs   zipvfs   allowother,webserver=:8000   0  0

Recognized filesystem options (forwarded to zipvfs's own "-o" verbatim):
  foreground, debug, allowother, async, striprename, cachesize=N,
  webserver=ADDR

Additional mount options controlling the helper itself (not forwarded):
  setuid=USER (as username or UID; overrides the executing user)
  xbin=/full/path/to/zipvfs (overrides the filesystem binary)
  xtim=SECS (numeric, in seconds; overrides the mount timeout)

Mount helper events are printed to standard error (stderr).`

const helpErrNotFound = `mount.zipvfs error: zipvfs not found within $PATH dirs.
Perhaps you installed it into some non-standard directory?
Do try passing "xbin=/full/path/to/binary" as a mount option.`

const helpErrMountTimeout = `mount.zipvfs error: mount did not appear within %d seconds.
You can raise this timeout by passing "xtim=SECS" as a mount option.`
