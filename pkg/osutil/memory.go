// Package osutil inspects the host the server runs on.
package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup memory limit files, v2 first. Values that don't parse, eg. "max",
// or that exceed physical memory mean the container is unrestricted.
var cgroupMemoryLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// GetTotalMemory returns the memory available to this process: the container
// limit when one applies, otherwise the host's physical memory.
func GetTotalMemory() uint64 {
	return totalMemory(memory.TotalMemory(), cgroupMemoryLimitFiles)
}

func totalMemory(physical uint64, limitFiles []string) uint64 {
	for _, path := range limitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		limit, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil || limit == 0 || limit >= physical {
			continue
		}
		return limit
	}
	return physical
}
