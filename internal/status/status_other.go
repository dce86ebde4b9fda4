//go:build !linux

package status

func sysinfo() string {
	return ""
}
