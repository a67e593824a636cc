package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

// Validate resolves and validates the raw environment bundle. It collects
// every problem instead of failing on the first one, so a misconfigured
// deployment gets one complete diagnostic. The external IP check is a hard
// precondition: the launcher refuses to advertise an address this host
// does not actually hold.
func (r RawSettings) Validate() (Settings, error) {
	collection := errors.NewErrorCollection()
	var settings Settings

	if r.RewardsAddress == "" {
		collection.Add(errors.NewConfigError(EnvRewardsAddress+" is required", nil))
	} else if err := validateRewardsAddress(r.RewardsAddress); err != nil {
		collection.Add(err)
	} else {
		settings.RewardsAddress = r.RewardsAddress
	}

	if r.NodePortSpec == "" {
		collection.Add(errors.NewConfigError(EnvNodePort+" is required", nil))
	} else if start, end, err := ParsePortSpec(r.NodePortSpec); err != nil {
		collection.Add(err)
	} else {
		settings.PortRangeStart = start
		settings.PortRangeEnd = end
	}

	if r.BootstrapPort == "" {
		collection.Add(errors.NewConfigError(EnvBootstrapPort+" is required", nil))
	} else if port, err := parsePort(r.BootstrapPort); err != nil {
		collection.Add(errors.NewConfigError("invalid "+EnvBootstrapPort, err))
	} else {
		settings.BootstrapPort = port
	}

	if r.ExternalIP == "" {
		collection.Add(errors.NewConfigError(EnvExternalIP+" is required", nil))
	} else if ip := net.ParseIP(r.ExternalIP); ip == nil {
		collection.Add(errors.NewConfigError("invalid "+EnvExternalIP+": "+r.ExternalIP, nil))
	} else {
		bound, err := isLocallyBound(ip)
		if err != nil {
			collection.Add(errors.NewConfigError("failed to resolve local interface addresses", err))
		} else if !bound {
			collection.Add(errors.NewConfigError(
				fmt.Sprintf("%s %s is not bound to any local interface", EnvExternalIP, r.ExternalIP), nil,
			).WithContext("external_ip", r.ExternalIP))
		} else {
			settings.ExternalIP = r.ExternalIP
		}
	}

	if collection.HasErrors() {
		return Settings{}, collection
	}
	return settings, nil
}

// ParsePortSpec parses the NODE_PORT grammar: a single port "PORT" or an
// inclusive range "START-END" with START <= END.
func ParsePortSpec(spec string) (int, int, error) {
	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := parsePort(parts[0])
		if err != nil {
			return 0, 0, errors.NewConfigError("invalid port range start in "+EnvNodePort+": "+spec, err)
		}
		end, err := parsePort(parts[1])
		if err != nil {
			return 0, 0, errors.NewConfigError("invalid port range end in "+EnvNodePort+": "+spec, err)
		}
		if start > end {
			return 0, 0, errors.NewConfigError(
				fmt.Sprintf("invalid port range in %s: start %d exceeds end %d", EnvNodePort, start, end), nil)
		}
		return start, end, nil
	}

	port, err := parsePort(spec)
	if err != nil {
		return 0, 0, errors.NewConfigError("invalid "+EnvNodePort+": "+spec, err)
	}
	return port, port, nil
}

func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", portStr)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// validateRewardsAddress accepts the 0x-prefixed 20-byte hex form the
// ledger expects.
func validateRewardsAddress(address string) error {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return errors.NewConfigError("invalid "+EnvRewardsAddress+": expected 0x-prefixed 40-digit hex address", nil).
			WithContext("rewards_address", address)
	}
	for _, char := range address[2:] {
		if !isHexDigit(char) {
			return errors.NewConfigError("invalid "+EnvRewardsAddress+": non-hex character", nil).
				WithContext("rewards_address", address)
		}
	}
	return nil
}

func isHexDigit(char rune) bool {
	return (char >= '0' && char <= '9') ||
		(char >= 'a' && char <= 'f') ||
		(char >= 'A' && char <= 'F')
}

// isLocallyBound reports whether ip is assigned to any local interface.
func isLocallyBound(ip net.IP) (bool, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false, err
	}

	for _, addr := range addrs {
		var candidate net.IP
		switch typed := addr.(type) {
		case *net.IPNet:
			candidate = typed.IP
		case *net.IPAddr:
			candidate = typed.IP
		}
		if candidate != nil && candidate.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}
