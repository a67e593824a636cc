package testnet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/core-tools/hsu-testnet/pkg/config"
	"github.com/core-tools/hsu-testnet/pkg/errors"
	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/readiness"
	"github.com/core-tools/hsu-testnet/pkg/runfiles"
)

// discoveryCache mirrors the JSON the leader node writes: a nested map of
// known peers keyed by peer ID. Only the listen addresses matter here.
type discoveryCache struct {
	Peers map[string]discoveryPeer `json:"peers"`
}

type discoveryPeer struct {
	Port       int    `json:"port"`
	PeerID     string `json:"peer_id"`
	ListenAddr string `json:"listen_addr"`
}

// RegistrationConverger polls the leader's discovery cache until the
// number of distinct registered addresses reaches the fleet size.
// Convergence is count-based: the launcher verifies how many nodes
// registered, not which ones.
type RegistrationConverger struct {
	timing     config.TimingConfig
	runFiles   *runfiles.Manager
	registry   *ProcessRegistry
	waiter     *readiness.Waiter
	logger     logging.Logger
	leaderPort int
	runID      string
}

func NewRegistrationConverger(
	timing config.TimingConfig,
	runFiles *runfiles.Manager,
	registry *ProcessRegistry,
	waiter *readiness.Waiter,
	leaderPort int,
	runID string,
	logger logging.Logger,
) *RegistrationConverger {
	return &RegistrationConverger{
		timing:     timing,
		runFiles:   runFiles,
		registry:   registry,
		waiter:     waiter,
		logger:     logger,
		leaderPort: leaderPort,
		runID:      runID,
	}
}

// AwaitConvergence waits until expectedCount distinct addresses appear in
// the discovery registry. Each tick first verifies every tracked process
// is still alive: a dead node can never register, so the wait aborts
// immediately instead of running out the timeout. On timeout the partial
// list is persisted for diagnostics and the error carries got/want counts.
func (c *RegistrationConverger) AwaitConvergence(ctx context.Context, expectedCount int) ([]string, error) {
	cachePath := c.runFiles.PeerCachePath(c.leaderPort)
	c.logger.Infof("Awaiting registration convergence, expected: %d, registry: %s", expectedCount, cachePath)

	var lastSnapshot []string

	err := c.waiter.WaitForCondition(ctx, "fleet registration",
		c.timing.FleetRegistrationTimeout, c.timing.PollInterval,
		func() (bool, error) {
			dead, found, err := c.registry.CheckAlive()
			if err != nil {
				return false, errors.NewInternalError("liveness probe failed during convergence", err)
			}
			if found {
				return false, errors.NewProcessError(
					"process died while awaiting registration", nil,
				).WithContext("name", dead.Name).WithContext("pid", dead.PID)
			}

			snapshot, err := c.readSnapshot(cachePath)
			if err != nil {
				return false, err
			}
			lastSnapshot = snapshot

			c.logger.Debugf("Registration progress: %d/%d", len(snapshot), expectedCount)
			return len(snapshot) >= expectedCount, nil
		})

	if err != nil {
		if errors.IsTimeoutError(err) {
			c.persistPartialList(lastSnapshot)
			return nil, errors.NewTimeoutError(
				fmt.Sprintf("fleet registration did not converge: %d of %d nodes registered",
					len(lastSnapshot), expectedCount), err,
			).WithContext("registered", len(lastSnapshot)).WithContext("expected", expectedCount)
		}
		return nil, err
	}

	// The cache is leader-owned and may list more addresses than launched
	// nodes; the published list length must equal the fleet size.
	if len(lastSnapshot) > expectedCount {
		c.logger.Warnf("Discovery registry holds %d addresses for a fleet of %d, capping the list",
			len(lastSnapshot), expectedCount)
		lastSnapshot = lastSnapshot[:expectedCount]
	}

	c.logger.Infof("Registration converged, addresses: %d", len(lastSnapshot))
	return lastSnapshot, nil
}

// readSnapshot reads one registry snapshot: distinct listen addresses,
// sorted for determinism. The cache is leader-owned; a missing file means
// nothing registered yet, and a half-written file is treated the same way
// rather than failing the bring-up.
func (c *RegistrationConverger) readSnapshot(cachePath string) ([]string, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIOError("failed to read discovery registry", err).WithContext("path", cachePath)
	}

	var cache discoveryCache
	if err := json.Unmarshal(data, &cache); err != nil {
		c.logger.Debugf("Discovery registry not yet decodable, path: %s, error: %v", cachePath, err)
		return nil, nil
	}

	seen := make(map[string]struct{}, len(cache.Peers))
	addresses := make([]string, 0, len(cache.Peers))
	for _, peer := range cache.Peers {
		if peer.ListenAddr == "" {
			continue
		}
		if _, dup := seen[peer.ListenAddr]; dup {
			continue
		}
		seen[peer.ListenAddr] = struct{}{}
		addresses = append(addresses, peer.ListenAddr)
	}
	sort.Strings(addresses)

	return addresses, nil
}

// persistPartialList writes whatever was gathered before the timeout so a
// failed bring-up leaves evidence of how far registration got.
func (c *RegistrationConverger) persistPartialList(addresses []string) {
	path := c.runFiles.PartialListPath(c.runID)

	content := ""
	if len(addresses) > 0 {
		content = strings.Join(addresses, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		c.logger.Errorf("Failed to persist partial bootstrap list, path: %s, error: %v", path, err)
		return
	}
	c.logger.Warnf("Partial bootstrap list persisted, path: %s, entries: %d", path, len(addresses))
}
