package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotKeys(t ScheduleTemplate) []int {
	keys := make([]int, len(t))
	for i, slot := range t {
		keys[i] = slot.Key
	}
	return keys
}

func TestScheduleTemplateKeyedAssignsPositionalKeysWithoutHistory(t *testing.T) {
	template := ScheduleTemplate{
		{Day: int(time.Monday), Time: "10:00"},
		{Day: int(time.Wednesday), Time: "14:00"},
	}
	keyed := template.Keyed(nil)
	assert.Equal(t, []int{1, 2}, slotKeys(keyed))
	assert.Zero(t, template[0].Key, "input must not be mutated")
	assert.Equal(t, slotKeys(keyed), slotKeys(keyed.Keyed(nil)))
}

func TestScheduleTemplateKeyedSurvivesSlotRemoval(t *testing.T) {
	previous := ScheduleTemplate{
		{Day: int(time.Monday), Time: "10:00"},
		{Day: int(time.Wednesday), Time: "14:00"},
		{Day: int(time.Friday), Time: "09:00"},
	}.Keyed(nil)

	next := ScheduleTemplate{
		{Day: int(time.Wednesday), Time: "14:00"},
		{Day: int(time.Friday), Time: "09:30"},
		{Day: int(time.Saturday), Time: "08:00"},
	}.Keyed(previous)

	assert.Equal(t, []int{2, 3, 4}, slotKeys(next))
}

func TestScheduleTemplateKeyedKeepsExplicitKeys(t *testing.T) {
	previous := ScheduleTemplate{{Day: int(time.Monday), Time: "10:00"}}.Keyed(nil)
	next := ScheduleTemplate{
		{Key: 7, Day: int(time.Tuesday), Time: "10:00"},
		{Key: 7, Day: int(time.Monday), Time: "10:00"},
	}.Keyed(previous)

	require.Len(t, next, 2)
	assert.Equal(t, 7, next[0].Key)
	assert.Equal(t, 1, next[1].Key, "duplicate key falls back to inheritance")
}

func TestScheduleTemplateForDay(t *testing.T) {
	template := ScheduleTemplate{
		{Day: int(time.Monday), Time: "10:00"},
		{Day: int(time.Wednesday), Time: "14:00"},
		{Day: int(time.Monday), Time: "16:00"},
	}
	slots := template.ForDay(time.Monday)
	require.Len(t, slots, 2)
	assert.Equal(t, "16:00", slots[1].Time)
	assert.Empty(t, template.ForDay(time.Sunday))
}
