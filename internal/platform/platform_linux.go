//go:build linux

package platform

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

func pageCache(vm *mem.VirtualMemoryStat) (cached, buffers *uint64) {
	c, b := vm.Cached, vm.Buffers
	return &c, &b
}

// linkSpeed reads /sys/class/net/<name>/speed; virtual and down links report
// -1 or fail to read.
func linkSpeed(name string) *uint64 {
	b, err := os.ReadFile(filepath.Join("/sys/class/net", name, "speed"))
	if err != nil {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || v <= 0 {
		return nil
	}
	s := uint64(v)
	return &s
}

var sysBlock = "/sys/block"

// wholeDisk reports whether name is a physical block device: partitions are
// not listed under /sys/block, and stacked devices (device-mapper, md RAID)
// have slaves whose bytes are already counted.
func wholeDisk(name string) bool {
	dir := filepath.Join(sysBlock, name)
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	slaves, err := os.ReadDir(filepath.Join(dir, "slaves"))
	return err != nil || len(slaves) == 0
}
