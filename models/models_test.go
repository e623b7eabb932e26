package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPresenceState_Toggle(t *testing.T) {
	next, action := PresenceOut.Toggle()
	assert.Equal(t, PresenceIn, next)
	assert.Equal(t, ActionEnter, action)

	next, action = next.Toggle()
	assert.Equal(t, PresenceOut, next)
	assert.Equal(t, ActionExit, action)

	assert.Equal(t, "out", PresenceOut.String())
	assert.Equal(t, "in", PresenceIn.String())
}

func TestOccupancySnapshot_FindSessionAndState(t *testing.T) {
	snap := &OccupancySnapshot{
		FacilityID: "fac_main",
		Current:    2,
		ActiveSessions: []ActiveSession{
			{IdentityID: "idt_alice", Username: "alice", SessionID: "s1"},
			{IdentityID: "idt_bob", Username: "bob", SessionID: "s2"},
		},
	}

	assert.Equal(t, 0, snap.FindSession("idt_alice"))
	assert.Equal(t, 1, snap.FindSession("idt_bob"))
	assert.Equal(t, -1, snap.FindSession("idt_eve"))

	assert.Equal(t, PresenceIn, snap.State("idt_alice"))
	assert.Equal(t, PresenceOut, snap.State("idt_eve"))
}

func TestAccessIdentity_Revoked(t *testing.T) {
	active := &AccessIdentity{CardID: "CARD-A", IsActive: true}
	assert.False(t, active.Revoked())

	assert.True(t, (&AccessIdentity{CardID: "", IsActive: true}).Revoked())
	assert.True(t, (&AccessIdentity{CardID: "CARD-A", IsActive: false}).Revoked())
	assert.True(t, (*AccessIdentity)(nil).Revoked())
}

func TestAttendee_TotalMinutes(t *testing.T) {
	assert.Equal(t, int64(0), (&Attendee{TotalSeconds: 59}).TotalMinutes())
	assert.Equal(t, int64(1), (&Attendee{TotalSeconds: 60}).TotalMinutes())
	assert.Equal(t, int64(90), (&Attendee{TotalSeconds: 5400}).TotalMinutes())
}

func TestAttendanceSession_Open(t *testing.T) {
	open := &AttendanceSession{EnteredAt: time.Now()}
	assert.True(t, open.Open())

	closed := &AttendanceSession{EnteredAt: time.Now(), ExitedAt: time.Now()}
	assert.False(t, closed.Open())

	assert.False(t, (*AttendanceSession)(nil).Open())
}
