package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

// Cache keeps resolved slot sequences per (doctor, date) so repeated
// availability queries for popular doctors avoid refetching schedule and
// reservation data. Entries are invalidated whenever a lifecycle event
// touches the doctor's day, and dropped wholesale for a doctor when their
// schedule or time-off changes. Resolutions for the current date are never
// cached: the past classification shifts with the clock.
type Cache struct {
	entries *lru.Cache[string, []Slot]
}

func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, []Slot](size)
	if err != nil {
		return nil, fmt.Errorf("create availability cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func cacheKey(doctorID uuid.UUID, date time.Time) string {
	return doctorID.String() + ":" + schedule.DateOnly(date).Format("2006-01-02")
}

func (c *Cache) Get(doctorID uuid.UUID, date time.Time) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(cacheKey(doctorID, date))
}

func (c *Cache) Store(doctorID uuid.UUID, date time.Time, slots []Slot) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey(doctorID, date), slots)
}

func (c *Cache) Invalidate(doctorID uuid.UUID, date time.Time) {
	if c == nil {
		return
	}
	c.entries.Remove(cacheKey(doctorID, date))
}

// InvalidateDoctor drops every cached day for one doctor. Schedule and
// time-off mutations can affect an unbounded range of dates, so per-day
// invalidation is not enough for them.
func (c *Cache) InvalidateDoctor(doctorID uuid.UUID) {
	if c == nil {
		return
	}
	prefix := doctorID.String() + ":"
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}
