/*
zipvfs is a FUSE filesystem that mirrors another directory tree, additionally
presenting ZIP archives within it as transparent, browseable directories.
*/
package main

import (
	"fmt"
	"net/http"
	"os"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/christophgil/zipvfs/internal/diagnostics"
	"github.com/christophgil/zipvfs/internal/logging"
	"github.com/christophgil/zipvfs/internal/nameremap"
	"github.com/christophgil/zipvfs/internal/zipvfs"
)

// Version is the program version, filled in from the Makefile.
var Version string

var optionsFlag string

func main() {
	cmd := &cobra.Command{
		Use:          helpTextUse,
		Short:        helpTextShort,
		Long:         helpTextLong,
		Args:         cobra.ExactArgs(2), //nolint:mnd
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringVarP(&optionsFlag, "options", "o", "", "comma-separated mount options, see --help")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, args []string) error {
	rootDir, mountDir := args[0], args[1]

	opts, err := zipvfs.ParseOptions(optionsFlag)
	if err != nil {
		return fmt.Errorf("invalid -o options: %w", err)
	}

	log, rbuf := logging.New(opts.Debug)

	for _, tok := range opts.Unknown {
		log.Infof("ignoring unrecognized mount option %q", tok)
	}

	mode := nameremap.Identity
	if opts.StripRename {
		mode = nameremap.StripSuffix
	}

	fsys := zipvfs.New(rootDir, mode, opts.CacheSize, log.Infof)
	defer fsys.Close()

	fuseOpts := opts.FuseMountOptions("zipvfs")
	if opts.Foreground {
		log.Infof("zipvfs %s starting in the foreground", Version)
	}

	conn, err := fuse.Mount(mountDir, fuseOpts...)
	if err != nil {
		return fmt.Errorf("mount error: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	var diagSrv *http.Server
	if opts.Webserver != "" {
		diagSrv = diagnostics.New(fsys, rbuf, log, Version).Serve(opts.Webserver)
	}

	if diagSrv != nil {
		defer diagSrv.Close() //nolint:errcheck
	}

	<-conn.Ready
	if err := conn.MountError; err != nil {
		return fmt.Errorf("mount error: %w", err)
	}

	signalHelperReady()
	setupSignalHandlers(log, mountDir)

	log.Infof("zipvfs %s mounted %s at %s", Version, rootDir, mountDir)

	if opts.Foreground {
		color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "zipvfs: ready, serving %s at %s\n", rootDir, mountDir) //nolint:errcheck
	}

	if err := fs.Serve(conn, fsys); err != nil {
		return fmt.Errorf("fs serve error: %w", err)
	}

	return nil
}
