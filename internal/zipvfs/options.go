package zipvfs

import (
	"fmt"
	"strconv"
	"strings"

	"bazil.org/fuse"

	"github.com/christophgil/zipvfs/internal/archivecache"
)

// Options is the parsed form of the comma-separated "-o" mount option
// string described in spec.md §4.6.
type Options struct {
	Foreground bool
	Debug      bool
	AllowOther bool
	Async      bool
	CacheSize  int

	// StripRename selects nameremap.StripSuffix over the default
	// nameremap.Identity mode; spec.md §4.1 leaves the selection mechanism
	// unspecified, resolved here as an explicit "-o" option.
	StripRename bool

	// Webserver is the listen address for the diagnostics server
	// (SPEC_FULL.md §6 expansion), empty if not requested.
	Webserver string

	// Unknown carries every unrecognized token verbatim, for logging; see
	// SPEC_FULL.md §4.6's resolution of the raw-passthrough Open Question.
	Unknown []string
}

// ParseOptions parses a comma-separated "-o" option string (possibly
// empty) into [Options].
func ParseOptions(optstr string) (Options, error) {
	opts := Options{CacheSize: archivecache.DefaultCapacity}

	for _, tok := range strings.Split(optstr, ",") {
		if tok == "" {
			continue
		}

		key, val, hasVal := strings.Cut(tok, "=")

		switch key {
		case "foreground":
			opts.Foreground = true
		case "debug":
			opts.Debug = true
		case "allowother":
			opts.AllowOther = true
		case "async":
			opts.Async = true
		case "striprename":
			opts.StripRename = true
		case "cachesize":
			n, err := parseCacheSize(val, hasVal)
			if err != nil {
				return Options{}, err
			}

			opts.CacheSize = n
		case "webserver":
			if !hasVal || val == "" {
				return Options{}, fmt.Errorf("option %q requires a value", key)
			}

			opts.Webserver = val
		default:
			opts.Unknown = append(opts.Unknown, tok)
		}
	}

	return opts, nil
}

func parseCacheSize(val string, hasVal bool) (int, error) {
	if !hasVal {
		return 0, fmt.Errorf("option %q requires a value", "cachesize")
	}

	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("option \"cachesize\" must be a positive integer, got %q", val)
	}

	return n, nil
}

// FuseMountOptions builds the bazil.org/fuse mount-option list for o. The
// FS is always mounted read-only; async controls exactly the
// fuse.AsyncRead() capability negotiated during the library's own INIT
// handshake (SPEC_FULL.md §4.6's resolution of the async Open Question).
func (o Options) FuseMountOptions(fsName string) []fuse.MountOption {
	mopts := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName(fsName),
		fuse.Subtype("zipvfs"),
	}

	if o.AllowOther {
		mopts = append(mopts, fuse.AllowOther())
	}

	if o.Async {
		mopts = append(mopts, fuse.AsyncRead())
	}

	return mopts
}
