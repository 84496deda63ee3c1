// Package assign resolves user-supplied assignment rules into a mapping from
// device identifier to the source tracks that device plays.
package assign

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// ParseRule parses a textual rule of the form "device=track[,track...]".
// Duplicate track indices within one rule are dropped, keeping first position.
func ParseRule(s string) (contracts.Rule, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return contracts.Rule{}, fmt.Errorf("%w: %q", contracts.ErrInvalidRule, s)
	}

	device, err := strconv.Atoi(lhs)
	if err != nil || device < 0 {
		return contracts.Rule{}, fmt.Errorf("%w: %q", contracts.ErrInvalidRule, s)
	}

	seen := make(map[int]bool)
	var tracks []int
	for _, part := range strings.Split(rhs, ",") {
		track, err := strconv.Atoi(part)
		if err != nil || track < 0 {
			return contracts.Rule{}, fmt.Errorf("%w: %q", contracts.ErrInvalidRule, s)
		}
		if seen[track] {
			continue
		}
		seen[track] = true
		tracks = append(tracks, track)
	}

	return contracts.Rule{Device: device, Tracks: tracks}, nil
}

// ParseRules parses a list of textual rules, failing on the first bad one.
func ParseRules(specs []string) ([]contracts.Rule, error) {
	var rules []contracts.Rule
	for _, s := range specs {
		rule, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Resolver maps assignment rules to a device → tracks mapping.
type Resolver struct {
	discovery contracts.Discovery
	log       contracts.Logger
}

// NewResolver creates a resolver. discovery is consulted only for the default
// assignment applied when no rules are supplied.
func NewResolver(discovery contracts.Discovery, log contracts.Logger) *Resolver {
	return &Resolver{discovery: discovery, log: log}
}

// Resolve validates the rules against trackCount and returns the mapping from
// device id to ordered track indices. When two rules name the same device the
// later one fully replaces the earlier, so an accidental duplicate is visible
// in the result rather than silently merged. With no rules at all, tracks are
// bound one per connected device in score order.
func (r *Resolver) Resolve(rules []contracts.Rule, trackCount int) (map[int][]int, error) {
	if len(rules) == 0 {
		return r.defaultAssignment(trackCount)
	}

	out := make(map[int][]int, len(rules))
	for _, rule := range rules {
		for _, track := range rule.Tracks {
			if track < 0 || track >= trackCount {
				return nil, fmt.Errorf("%w: track %d (score has %d tracks)",
					contracts.ErrTrackOutOfRange, track, trackCount)
			}
		}
		if _, dup := out[rule.Device]; dup {
			r.log.Warn("rule replaces earlier assignment for device",
				r.log.Field().Int("device", rule.Device))
		}
		out[rule.Device] = append([]int(nil), rule.Tracks...)
	}
	return out, nil
}

// defaultAssignment binds track i to the i-th connected device. Tracks beyond
// the number of connected devices are dropped with a warning.
func (r *Resolver) defaultAssignment(trackCount int) (map[int][]int, error) {
	devices, err := r.discovery.Devices()
	if err != nil {
		return nil, fmt.Errorf("discover devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, contracts.ErrNoDevices
	}

	n := trackCount
	if len(devices) < n {
		n = len(devices)
		r.log.Warn("more tracks than connected devices, extra tracks dropped",
			r.log.Field().Int("tracks", trackCount),
			r.log.Field().Int("devices", len(devices)))
	}

	out := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		out[devices[i].ID] = []int{i}
	}
	return out, nil
}
