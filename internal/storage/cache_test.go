package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentCache_EvictsOldestPastCapacity(t *testing.T) {
	c := NewRecentCache()
	for i := 0; i < maxRecentReadings+10; i++ {
		c.Add("eq-1", fmt.Sprintf("snapshot-%d", i))
	}

	all := c.Recent("eq-1", maxRecentReadings+10)

	require := assert.New(t)
	require.Len(all, maxRecentReadings)
	require.Equal("snapshot-10", all[0])
	require.Equal(fmt.Sprintf("snapshot-%d", maxRecentReadings+9), all[len(all)-1])
}

func TestRecentCache_PerEquipmentIsolation(t *testing.T) {
	c := NewRecentCache()
	c.Add("eq-1", "a")
	c.Add("eq-2", "b")

	assert.Equal(t, []string{"a"}, c.Recent("eq-1", 10))
	assert.Equal(t, []string{"b"}, c.Recent("eq-2", 10))
}

func TestRecentCache_RecentCountCap(t *testing.T) {
	c := NewRecentCache()
	c.Add("eq-1", "a")
	c.Add("eq-1", "b")
	c.Add("eq-1", "c")

	assert.Equal(t, []string{"b", "c"}, c.Recent("eq-1", 2))
}

func TestRecentCache_UnknownEquipmentIsEmpty(t *testing.T) {
	c := NewRecentCache()

	assert.Empty(t, c.Recent("nonexistent", 10))
}
