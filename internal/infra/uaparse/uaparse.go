// Package uaparse resolves raw user-agent strings into the structured device
// record embedded in certification reports.
package uaparse

import (
	"firma/internal/domain"

	ua "github.com/mileusna/useragent"
)

const unknown = "unknown"

// Parse is best-effort: anything the parser cannot name comes back as
// "unknown" rather than an empty string.
func Parse(raw string) domain.DeviceInfo {
	info := domain.DeviceInfo{Device: unknown, Browser: unknown, OS: unknown}
	if raw == "" {
		return info
	}
	parsed := ua.Parse(raw)
	switch {
	case parsed.Mobile:
		info.Device = "mobile"
	case parsed.Tablet:
		info.Device = "tablet"
	case parsed.Desktop:
		info.Device = "desktop"
	case parsed.Bot:
		info.Device = "bot"
	}
	if parsed.Device != "" {
		info.Device = parsed.Device
	}
	if parsed.Name != "" {
		info.Browser = parsed.Name
		if parsed.Version != "" {
			info.Browser += " " + parsed.Version
		}
	}
	if parsed.OS != "" {
		info.OS = parsed.OS
		if parsed.OSVersion != "" {
			info.OS += " " + parsed.OSVersion
		}
	}
	return info
}
