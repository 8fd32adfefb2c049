// Package device turns raw User-Agent headers into short display labels for audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a "<browser> on <os>" label, e.g. "Chrome on Windows 10".
// Mobile clients are labelled by platform ("Safari on iPhone").
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownDevice
	}
	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "Bot"
	}
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := strings.TrimSpace(ua.OS())
	if ua.Mobile() {
		if platform := strings.TrimSpace(ua.Platform()); platform != "" {
			os = platform
		}
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
