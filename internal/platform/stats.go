// Package platform exposes ambient activity figures for context
// composition. The numbers are display hints; they must also be stable
// between requests, because composed context feeds the cache fingerprint.
package platform

import (
	"github.com/pulse-platform/assistant/internal/composer"
	"github.com/pulse-platform/assistant/internal/config"
)

// StatsSource yields the current platform activity snapshot.
type StatsSource interface {
	Snapshot() composer.PlatformStats
}

// FixedStats serves one configured snapshot for the process lifetime.
type FixedStats struct {
	stats composer.PlatformStats
}

func NewFixedStats(cfg config.PlatformConfig) *FixedStats {
	return &FixedStats{stats: composer.PlatformStats{
		ActiveUsers:   cfg.ActiveUsers,
		PostCount:     cfg.PostCount,
		TrendingTopic: cfg.TrendingTopic,
	}}
}

func (f *FixedStats) Snapshot() composer.PlatformStats {
	return f.stats
}
