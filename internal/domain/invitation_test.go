package domain

import (
	"testing"
	"time"
)

func TestInvitationValidity(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		invite Invitation
		want   InviteValidity
	}{
		{
			name:   "within window and under cap",
			invite: Invitation{ExpiresAt: now.Add(time.Hour), Uses: 3, MaxUses: 50},
			want:   InviteValid,
		},
		{
			name:   "window elapsed",
			invite: Invitation{ExpiresAt: now.Add(-time.Minute), Uses: 0, MaxUses: 50},
			want:   InviteExpiredWindow,
		},
		{
			name:   "use cap reached",
			invite: Invitation{ExpiresAt: now.Add(time.Hour), Uses: 50, MaxUses: 50},
			want:   InviteUseLimitReached,
		},
		{
			name:   "elapsed window wins over cap",
			invite: Invitation{ExpiresAt: now.Add(-time.Minute), Uses: 50, MaxUses: 50},
			want:   InviteExpiredWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invite.Validity(now); got != tt.want {
				t.Errorf("Validity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInviteValidityString(t *testing.T) {
	tests := []struct {
		v    InviteValidity
		want string
	}{
		{InviteValid, "valid"},
		{InviteExpiredWindow, "expired"},
		{InviteUseLimitReached, "use_limit_reached"},
		{InviteWrongInvitation, "wrong_invitation"},
		{InviteMissing, "not_found"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
