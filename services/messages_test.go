package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lunch-queue/internal/status"
	"lunch-queue/models"
)

func TestStatusBoard(t *testing.T) {
	session := &models.Session{Date: "2026-08-29", ConcurrencyLimit: 3, GroupSize: 3}
	stats := &models.QueueStats{
		TotalInQueue: 3,
		InProgress:   2,
		Waiting:      1,
		Entries: []models.QueueStatsLine{
			{Position: 1, Name: "Alex", Status: models.EntryAtLunch},
			{Position: 2, Name: "Kim", Status: models.EntryReady},
			{Position: 3, Name: "Sam", Status: models.EntryWaiting},
		},
	}

	board := StatusBoard(session, stats)
	assert.Contains(t, board, "Status for 2026-08-29")
	assert.Contains(t, board, "In progress: 2 / 3")
	assert.Contains(t, board, "1. Alex - at lunch")
	assert.Contains(t, board, "3. Sam - waiting")

	empty := StatusBoard(session, &models.QueueStats{})
	assert.Contains(t, empty, "Queue is empty.")
}

func TestGroupBoardChunksBySize(t *testing.T) {
	session := &models.Session{Date: "2026-08-29", ConcurrencyLimit: 2, GroupSize: 2}
	stats := &models.QueueStats{
		Entries: []models.QueueStatsLine{
			{Position: 1, Name: "Alex", Status: models.EntryAtLunch},
			{Position: 2, Name: "Kim", Status: models.EntryAtLunch},
			{Position: 3, Name: "Sam", Status: models.EntryWaiting},
		},
	}

	board := GroupBoard(session, stats)
	assert.Contains(t, board, "Group 1 (at lunch)")
	assert.Contains(t, board, "Group 2 (waiting)")
	assert.Contains(t, board, "Total people in queue: 3")

	empty := GroupBoard(session, &models.QueueStats{})
	assert.Equal(t, "No one is in the queue yet.", empty)
}

func TestReminderMessageRoundsUp(t *testing.T) {
	assert.Contains(t, reminderMessage(4*time.Minute+40*time.Second), "5 min")
	assert.Contains(t, reminderMessage(20*time.Second), "1 min")
}

func TestRejectionMessageMapping(t *testing.T) {
	msg, ok := rejectionMessage(status.ErrNotNotified)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	msg, ok = rejectionMessage(status.ErrSessionFinished)
	assert.True(t, ok)
	assert.Contains(t, msg, "over")

	_, ok = rejectionMessage(assert.AnError)
	assert.False(t, ok)
}
