//go:build linux || darwin || freebsd || netbsd || openbsd

package extract

import (
	"os"
	"os/user"
	"strconv"
	"sync"
	"syscall"
)

var ownerNames sync.Map // uid -> username

// fileOwner resolves the owning user's name, or "" when it cannot be found.
func fileOwner(info os.FileInfo) string {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	if name, ok := ownerNames.Load(uid); ok {
		return name.(string)
	}
	name := ""
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	ownerNames.Store(uid, name)
	return name
}
