/*
mount.zipvfs - FUSE mount helper

This program is a helper for the mount/fstab mechanism. See help.go for the
full usage text (printed when fewer than two arguments are given; a parse
error prints only the error message).
*/
//nolint:mnd,err113
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultMountTimeout = 20 * time.Second

// Version is the program version, filled in from the Makefile.
var Version string

// forwardedKeys are the zipvfs "-o" keys this helper passes straight
// through; setuid, xbin and xtim are consumed by the helper itself, and
// every other bare or key=value token is dropped (see
// [MountHelper.parseOptions]).
var forwardedKeys = map[string]struct{}{
	"foreground":  {},
	"debug":       {},
	"allowother":  {},
	"async":       {},
	"striprename": {},
	"cachesize":   {},
	"webserver":   {},
}

// MountHelper is the parsed form of a mount(8) helper invocation.
type MountHelper struct {
	Program    string
	Source     string
	Mountpoint string

	// Forwarded is passed to zipvfs's own "-o" flag verbatim.
	Forwarded []string

	Setuid  string
	Binary  string
	Timeout time.Duration
}

// NewMountHelper parses os.Args-shaped arguments into a [MountHelper].
func NewMountHelper(args []string) (*MountHelper, error) {
	if len(args) < 3 {
		return nil, errors.New("need at least source and mountpoint arguments")
	}

	mh := &MountHelper{
		Program:    args[0],
		Source:     args[1],
		Mountpoint: args[2],
		Binary:     "zipvfs",
		Timeout:    defaultMountTimeout,
	}

	if mh.Source == "" {
		return nil, errors.New("no source argument was given")
	}
	if mh.Mountpoint == "" {
		return nil, errors.New("no mountpoint argument was given")
	}

	if err := mh.parseOptions(args[3:]); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}

	return mh, nil
}

func (mh *MountHelper) parseOptions(args []string) error {
	for i := 0; i < len(args); i++ { //nolint:intrange
		arg := args[i]

		if arg == "-v" || arg == "-o" {
			continue
		}

		if arg == "-t" {
			i++ // the filesystem type is always zipvfs; skip its value.

			continue
		}

		for _, opt := range strings.Split(arg, ",") {
			if opt == "" {
				continue
			}

			opt = strings.TrimPrefix(opt, "--")
			key, val, hasVal := strings.Cut(opt, "=")

			switch key {
			case "setuid":
				mh.Setuid = val
			case "xbin":
				mh.Binary = val
			case "xtim":
				secs, err := strconv.Atoi(val)
				if err != nil {
					return fmt.Errorf("invalid xtim value %q: %w", val, err)
				}

				mh.Timeout = time.Duration(secs) * time.Second
			default:
				if _, ok := forwardedKeys[key]; ok {
					if hasVal {
						mh.Forwarded = append(mh.Forwarded, key+"="+val)
					} else {
						mh.Forwarded = append(mh.Forwarded, key)
					}
				}
			}
		}
	}

	return nil
}

func main() {
	if len(os.Args) < 3 {
		progName := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, helpTextLong+"\n", progName, Version, progName, progName)
		os.Exit(1)
	}

	helper, err := NewMountHelper(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := helper.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
