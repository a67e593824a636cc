package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-tools/hsu-testnet/pkg/errors"
)

const validRewardsAddress = "0x03B770D9cd32077cC0bF330c13C114a87643B124"

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		start     int
		end       int
		shouldErr bool
	}{
		{"single_port", "9000", 9000, 9000, false},
		{"range", "9000-9002", 9000, 9002, false},
		{"range_single", "9000-9000", 9000, 9000, false},
		{"start_exceeds_end", "9002-9000", 0, 0, true},
		{"not_a_number", "abc", 0, 0, true},
		{"bad_range_start", "abc-9000", 0, 0, true},
		{"bad_range_end", "9000-abc", 0, 0, true},
		{"port_zero", "0", 0, 0, true},
		{"port_too_high", "70000", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParsePortSpec(tt.spec)

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsConfigError(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.start, start)
				assert.Equal(t, tt.end, end)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	raw := RawSettings{} // everything missing

	_, err := raw.Validate()
	require.Error(t, err)

	var collection *errors.ErrorCollection
	require.ErrorAs(t, err, &collection)
	assert.Len(t, collection.Errors, 4)

	message := err.Error()
	assert.Contains(t, message, EnvRewardsAddress)
	assert.Contains(t, message, EnvExternalIP)
	assert.Contains(t, message, EnvNodePort)
	assert.Contains(t, message, EnvBootstrapPort)
}

func TestValidateSuccess(t *testing.T) {
	raw := RawSettings{
		RewardsAddress: validRewardsAddress,
		ExternalIP:     "127.0.0.1", // loopback is always bound
		NodePortSpec:   "9000-9002",
		BootstrapPort:  "8080",
	}

	settings, err := raw.Validate()
	require.NoError(t, err)
	assert.Equal(t, validRewardsAddress, settings.RewardsAddress)
	assert.Equal(t, "127.0.0.1", settings.ExternalIP)
	assert.Equal(t, 9000, settings.PortRangeStart)
	assert.Equal(t, 9002, settings.PortRangeEnd)
	assert.Equal(t, 8080, settings.BootstrapPort)
	assert.Equal(t, 3, settings.NodeCount())
	assert.Equal(t, []int{9000, 9001, 9002}, settings.Ports())
}

func TestValidateSinglePortFleet(t *testing.T) {
	raw := RawSettings{
		RewardsAddress: validRewardsAddress,
		ExternalIP:     "127.0.0.1",
		NodePortSpec:   "9000",
		BootstrapPort:  "8080",
	}

	settings, err := raw.Validate()
	require.NoError(t, err)
	assert.Equal(t, 1, settings.NodeCount())
}

func TestValidateUnboundExternalIP(t *testing.T) {
	raw := RawSettings{
		RewardsAddress: validRewardsAddress,
		ExternalIP:     "203.0.113.77", // TEST-NET-3, never bound locally
		NodePortSpec:   "9000-9002",
		BootstrapPort:  "8080",
	}

	_, err := raw.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound to any local interface")
}

func TestValidateMalformedExternalIP(t *testing.T) {
	raw := RawSettings{
		RewardsAddress: validRewardsAddress,
		ExternalIP:     "not-an-ip",
		NodePortSpec:   "9000",
		BootstrapPort:  "8080",
	}

	_, err := raw.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvExternalIP)
}

func TestValidateRewardsAddress(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		shouldErr bool
	}{
		{"valid", validRewardsAddress, false},
		{"valid_lowercase", "0x" + strings.Repeat("ab", 20), false},
		{"missing_prefix", strings.Repeat("ab", 21), true},
		{"too_short", "0xABC", true},
		{"non_hex", "0x" + strings.Repeat("zz", 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRewardsAddress(tt.address)

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsConfigError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
