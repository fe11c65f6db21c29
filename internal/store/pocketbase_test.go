package store

import (
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/stretchr/testify/assert"

	"lunch-queue/models"
)

func TestSessionForDateFilter(t *testing.T) {
	filter, params := sessionForDateFilter("2026-08-29", nil)
	assert.Equal(t, "date = {:date}", filter)
	assert.Equal(t, dbx.Params{"date": "2026-08-29"}, params)

	filter, params = sessionForDateFilter("2026-08-29",
		[]models.SessionStatus{models.SessionCollecting})
	assert.Equal(t, "date = {:date} && (status = {:status0})", filter)
	assert.Equal(t, "collecting", params["status0"])
}

func TestSessionForDateFilterScopesEveryStatusUnderDate(t *testing.T) {
	filter, params := sessionForDateFilter("2026-08-29",
		[]models.SessionStatus{models.SessionCollecting, models.SessionActive, models.SessionFinished})

	// All status terms must sit inside one parenthesized group ANDed with the
	// date; otherwise a session of another date could satisfy the filter
	// through a trailing || branch.
	assert.Equal(t,
		"date = {:date} && (status = {:status0} || status = {:status1} || status = {:status2})",
		filter)
	assert.Equal(t, dbx.Params{
		"date":    "2026-08-29",
		"status0": "collecting",
		"status1": "active",
		"status2": "finished",
	}, params)
}
