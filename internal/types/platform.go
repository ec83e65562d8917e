package types

import (
	"fmt"
	"runtime"
)

// Platform is one of the two supported operating systems.
type Platform string

const (
	Linux  Platform = "linux"
	Darwin Platform = "darwin"
)

// Arch is one of the two supported CPU architectures.
type Arch string

const (
	Aarch64 Arch = "aarch64"
	X8664   Arch = "x86-64"
)

// CurrentPlatform maps runtime.GOOS to a Platform token.
func CurrentPlatform() (Platform, error) {
	switch runtime.GOOS {
	case "linux":
		return Linux, nil
	case "darwin":
		return Darwin, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// CurrentArch maps runtime.GOARCH to an Arch token.
func CurrentArch() (Arch, error) {
	switch runtime.GOARCH {
	case "arm64":
		return Aarch64, nil
	case "amd64":
		return X8664, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", runtime.GOARCH)
	}
}
