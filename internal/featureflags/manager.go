// Package featureflags evaluates rollout flags configured through FEATURE_FLAGS.
//
// The setting is a comma separated list of name=value pairs, for example
// "redis_view_dedup=25%,maintenance=off". A value is on/true/1, off/false/0
// or a percentage. Percentages bucket subjects deterministically, so a given
// client stays on the same side of a rollout across requests.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// RedisViewDedup moves view deduplication from the marker cookie to Redis
// for the rolled-out share of clients.
const RedisViewDedup = "redis_view_dedup"

// rule is a parsed flag value. percent is 0..100; on/off parse to 100/0.
type rule struct {
	raw     string
	percent int
}

type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs and values are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			m.rules[name] = r
		}
	}
	return m
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value}, true
	}
	pct, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// Enabled reports whether name is on for subject, which may be an anonymous
// client token or a "user:<id>" string. Partial rollouts need a subject.
func (m *Manager) Enabled(name, subject string) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	r, ok := m.rules[name]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case subject == "":
		return false
	}
	return bucket(name, subject) < r.percent
}

// Configured lists flag names with their configured values.
func (m *Manager) Configured() map[string]string {
	out := make(map[string]string, len(m.rules))
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(subject))
	return int(h.Sum32() % 100)
}
