package gamification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zdi-academy/backend/internal/models"
)

// memStore is an in-memory Store. UpdateStats holds one lock for the whole
// read-modify-write, matching the row lock the Postgres store takes.
type memStore struct {
	mu           sync.Mutex
	stats        map[string]*models.UserStats
	events       []models.PointEvent
	achievements []models.AchievementDefinition
	earned       map[string]map[string]time.Time
	failUpdate   error
}

func newMemStore(defs ...models.AchievementDefinition) *memStore {
	return &memStore{
		stats:        make(map[string]*models.UserStats),
		achievements: defs,
		earned:       make(map[string]map[string]time.Time),
	}
}

func (m *memStore) UpdateStats(ctx context.Context, userID string, now time.Time, fn StatsFunc) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}

	current, ok := m.stats[userID]
	if !ok {
		created := now.UTC()
		current = &models.UserStats{UserID: userID, Level: 1, LastActivityDate: &created}
	}
	working := *current
	event, err := fn(&working)
	if err != nil {
		return nil, err
	}
	m.stats[userID] = &working
	if event != nil {
		m.events = append(m.events, *event)
	}
	out := working
	return &out, nil
}

func (m *memStore) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[userID]
	if !ok {
		return nil, nil
	}
	out := *st
	return &out, nil
}

func (m *memStore) TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := []models.LeaderboardEntry{}
	for _, st := range m.stats {
		entries = append(entries, models.LeaderboardEntry{UserID: st.UserID, TotalPoints: st.TotalPoints, Level: st.Level})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *memStore) AllTotals(ctx context.Context) ([]models.UserTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var totals []models.UserTotal
	for _, st := range m.stats {
		totals = append(totals, models.UserTotal{UserID: st.UserID, TotalPoints: st.TotalPoints})
	}
	return totals, nil
}

func (m *memStore) ActiveAchievements(ctx context.Context) ([]models.AchievementDefinition, error) {
	var out []models.AchievementDefinition
	for _, d := range m.achievements {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) EarnedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for id := range m.earned[userID] {
		out[id] = true
	}
	return out, nil
}

func (m *memStore) MarkAchievementEarned(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.earned[userID] == nil {
		m.earned[userID] = make(map[string]time.Time)
	}
	if _, ok := m.earned[userID][achievementID]; ok {
		return false, nil
	}
	m.earned[userID][achievementID] = at
	return true, nil
}

func (m *memStore) ListUserAchievements(ctx context.Context, userID string) ([]models.EarnedAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EarnedAchievement
	for _, d := range m.achievements {
		if at, ok := m.earned[userID][d.ID]; ok {
			out = append(out, models.EarnedAchievement{AchievementDefinition: d, EarnedAt: at})
		}
	}
	return out, nil
}

// memCache is an in-memory LeaderboardCache.
type memCache struct {
	mu     sync.Mutex
	scores map[string]int64
	err    error
}

func newMemCache() *memCache {
	return &memCache{scores: make(map[string]int64)}
}

func (c *memCache) SetScore(ctx context.Context, userID string, total int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if total > c.scores[userID] {
		c.scores[userID] = total
	}
	return nil
}

func (c *memCache) Top(ctx context.Context, limit int) ([]models.UserTotal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []models.UserTotal
	for id, t := range c.scores {
		out = append(out, models.UserTotal{UserID: id, TotalPoints: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *memCache) Merge(ctx context.Context, totals []models.UserTotal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, t := range totals {
		if t.TotalPoints > c.scores[t.UserID] {
			c.scores[t.UserID] = t.TotalPoints
		}
	}
	return nil
}

var errCacheDown = errors.New("cache down")
