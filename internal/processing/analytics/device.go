package analytics

import "strings"

type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
	DeviceOther   Device = "other"
)

// ClassifyDevice buckets a user agent by substring. Order matters: an iPad
// UA that also says "Mobile" counts as mobile.
func ClassifyDevice(userAgent string) Device {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"):
		return DeviceMobile
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return DeviceTablet
	case strings.Contains(ua, "mozilla"), strings.Contains(ua, "chrome"):
		return DeviceDesktop
	default:
		return DeviceOther
	}
}

func (b *DeviceBreakdown) add(d Device, n int64) {
	switch d {
	case DeviceMobile:
		b.Mobile += n
	case DeviceTablet:
		b.Tablet += n
	case DeviceDesktop:
		b.Desktop += n
	default:
		b.Other += n
	}
}
