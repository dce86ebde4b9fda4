package status

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func sysinfo() string {
	si := &unix.Sysinfo_t{}
	if err := unix.Sysinfo(si); err != nil {
		logger.Debugf("sysinfo failed: %v", err)
		return ""
	}

	scale := 65536.0 // magic
	return fmt.Sprintf("uptime %v, load %.2f %.2f %.2f, free ram %dMB",
		time.Duration(si.Uptime)*time.Second,
		float64(si.Loads[0])/scale,
		float64(si.Loads[1])/scale,
		float64(si.Loads[2])/scale,
		uint64(si.Freeram)*uint64(si.Unit)/(1024*1024),
	)
}
