package utils

import (
	"fmt"
	"strings"

	ua "github.com/mileusna/useragent"
)

// ClientInfo is the parsed form of a User-Agent header.
type ClientInfo struct {
	Browser string `json:"browser" bson:"browser"`
	OS      string `json:"os" bson:"os"`
	Device  string `json:"device" bson:"device"`
	Bot     bool   `json:"bot,omitempty" bson:"bot,omitempty"`
}

// ParseUserAgent extracts useful information from User-Agent string
func ParseUserAgent(userAgent string) (browser, os, device string) {
	info := ParseClientInfo(userAgent)
	return info.Browser, info.OS, info.Device
}

func ParseClientInfo(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{Browser: "Unknown Browser", OS: "Unknown OS", Device: "Desktop"}
	}

	parsedUA := ua.Parse(userAgent)
	info := ClientInfo{
		Browser: "Unknown Browser",
		OS:      "Unknown OS",
		Device:  "Desktop",
		Bot:     parsedUA.Bot,
	}

	if parsedUA.Name != "" {
		info.Browser = strings.TrimSpace(parsedUA.Name)
	}
	if parsedUA.OS != "" {
		info.OS = strings.TrimSpace(parsedUA.OS)
	}

	if parsedUA.Mobile {
		if strings.Contains(userAgent, "iPhone") {
			info.Device = "iPhone"
		} else {
			info.Device = "Mobile"
		}
	} else if parsedUA.Tablet {
		info.Device = "Tablet"
	}

	return info
}

// DeviceLabel is the short "Browser on OS" form stored on sessions and
// compared by the suspicious-login check.
func DeviceLabel(userAgent string) string {
	browser, os, device := ParseUserAgent(userAgent)
	return fmt.Sprintf("%s on %s (%s)", browser, os, device)
}

// GenerateSessionName creates a user-friendly session name
func GenerateSessionName(userAgent string, location string) string {
	browser, os, _ := ParseUserAgent(userAgent)

	name := fmt.Sprintf("%s on %s", browser, os)
	if location == "" {
		location = "Unknown Location"
	}
	return fmt.Sprintf("%s (%s)", name, location)
}
