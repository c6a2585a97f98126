package main

import (
	"fmt"
	"os/user"
	"strconv"
)

// resolveUser looks up spec (a username or numeric UID) and returns its
// UID and GID.
func resolveUser(spec string) (uint32, uint32, error) {
	var u *user.User

	if _, err := strconv.ParseUint(spec, 10, 32); err == nil {
		resolved, err := user.LookupId(spec)
		if err != nil {
			return 0, 0, fmt.Errorf("lookup user %q failed: %w", spec, err)
		}

		u = resolved
	} else {
		resolved, err := user.Lookup(spec)
		if err != nil {
			return 0, 0, fmt.Errorf("lookup user %q failed: %w", spec, err)
		}

		u = resolved
	}

	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid uid %q: %w", u.Uid, err)
	}

	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid gid %q: %w", u.Gid, err)
	}

	return uint32(uid), uint32(gid), nil
}
