package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateStatusAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	tests := []struct {
		name string
		note Note
		want DateStatus
	}{
		{"no due date", Note{}, DateNone},
		{"begin without due", Note{Begin: &yesterday}, DateNone},
		{"confirmed", Note{Due: &yesterday, ConfirmDue: true}, DateComplete},
		{"overdue unconfirmed", Note{Due: &yesterday}, DateConfirmToComplete},
		{"inside window", Note{Begin: &yesterday, Due: &tomorrow}, DateProgress},
		{"before window", Note{Begin: &tomorrow, Due: &nextWeek}, DateTodo},
		{"due only not yet reached", Note{Due: &tomorrow}, DateTodo},
		{"confirmed wins over future due", Note{Begin: &yesterday, Due: &tomorrow, ConfirmDue: true}, DateComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.note.DateStatusAt(now))
		})
	}
}
