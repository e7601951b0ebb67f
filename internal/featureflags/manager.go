// Package featureflags gates optional behavior from the FEATURE_FLAGS setting,
// a comma-separated list such as "realtime_events=on,trending_v2=25%".
package featureflags

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flag names a gated behavior.
type Flag string

// RealtimeEvents gates websocket/pub-sub delivery of follow, like, comment and join events.
const RealtimeEvents Flag = "realtime_events"

// Defaults apply to flags the configuration does not mention.
var Defaults = map[Flag]string{
	RealtimeEvents: "on",
}

// rule is a parsed flag value: a percentage of users, where 0 is off and 100 is on.
type rule struct {
	value   string
	percent int
}

// Manager evaluates flags for a user. A nil Manager reports every flag off.
type Manager struct {
	rules map[Flag]rule
}

// Parse builds a Manager and rejects malformed entries.
func Parse(raw string) (*Manager, error) {
	m := &Manager{rules: make(map[Flag]rule)}
	for flag, value := range Defaults {
		r, err := parseRule(value)
		if err != nil {
			return nil, fmt.Errorf("default %s: %w", flag, err)
		}
		m.rules[flag] = r
	}

	var errs []error
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		flag := Flag(normalize(name))
		if !ok || flag == "" {
			errs = append(errs, fmt.Errorf("entry %q: want name=value", entry))
			continue
		}
		r, err := parseRule(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", flag, err))
			continue
		}
		m.rules[flag] = r
	}
	return m, errors.Join(errs...)
}

// NewManager is Parse that keeps the valid entries and drops the rest.
func NewManager(raw string) *Manager {
	m, _ := Parse(raw)
	return m
}

func parseRule(value string) (rule, error) {
	v := normalize(value)
	switch v {
	case "on", "true", "1":
		return rule{value: v, percent: 100}, nil
	case "off", "false", "0":
		return rule{value: v, percent: 0}, nil
	}
	pct, ok := strings.CutSuffix(v, "%")
	if !ok {
		return rule{}, fmt.Errorf("unknown value %q", value)
	}
	n, err := strconv.Atoi(pct)
	if err != nil || n < 0 || n > 100 {
		return rule{}, fmt.Errorf("rollout %q must be 0%%-100%%", value)
	}
	return rule{value: v, percent: n}, nil
}

// Enabled reports whether flag is on for userID. Partial rollouts bucket users
// deterministically and never include anonymous callers.
func (m *Manager) Enabled(flag Flag, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[Flag(normalize(string(flag)))]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return bucket(flag, userID) < r.percent
}

// Raw returns the configured value of every known flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for flag, r := range m.rules {
		out[string(flag)] = r.value
	}
	return out
}

// Snapshot evaluates every known flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for flag := range m.rules {
		out[string(flag)] = m.Enabled(flag, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(flag Flag, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(string(flag))))
	_, _ = h.Write(binary.BigEndian.AppendUint64(nil, uint64(userID)))
	return int(h.Sum32() % 100)
}
