package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokens(t *testing.T) {
	timeout := 24 * time.Hour
	now := time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

	usr := User{
		ID:        "5c1c8a4e-6d1d-4b8e-9d3a-0f5bfae1d2c7",
		Username:  "teacher_t",
		Email:     "t@test.test",
		Role:      RoleTeacher,
		LastLogin: now.Add(-48 * time.Hour),
	}
	require.NoError(t, usr.SetPassword("pwd123"))

	tokens := NewResetTokens("secret", timeout)
	at := func(t time.Time) func() time.Time { return func() time.Time { return t } }

	tokens.now = at(now)
	valid := tokens.Make(usr)
	tokens.now = at(now.Add(-timeout - 2*time.Hour))
	expired := tokens.Make(usr)
	tokens.now = at(now.Add(3 * time.Hour))
	future := tokens.Make(usr)
	tokens.now = at(now)

	newPwd := usr
	require.NoError(t, newPwd.SetPassword("changed"))
	signedIn := usr
	signedIn.LastLogin = now
	otherEmail := usr
	otherEmail.Email = "other@test.test"

	tests := []struct {
		name    string
		tokens  *ResetTokens
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "bad timestamp", usr: usr, token: "!!-sig", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: valid[:len(valid)-2] + "xx", wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: expired, wantErr: errTokenExpired},
		{name: "issued in the future", usr: usr, token: future, wantErr: errInvalidToken},
		{name: "password changed since", usr: newPwd, token: valid, wantErr: errInvalidToken},
		{name: "signed in since", usr: signedIn, token: valid, wantErr: errInvalidToken},
		{name: "email changed since", usr: otherEmail, token: valid, wantErr: errInvalidToken},
		{name: "other secret key", tokens: NewResetTokens("other", timeout), usr: usr, token: valid, wantErr: errInvalidToken},
		{name: "valid", usr: usr, token: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tokens
			if tt.tokens != nil {
				rt = tt.tokens
				rt.now = at(now)
			}
			assert.Equal(t, tt.wantErr, rt.Check(tt.usr, tt.token))
		})
	}

	t.Run("valid until the timeout", func(t *testing.T) {
		tokens.now = at(now.Add(timeout))
		defer func() { tokens.now = at(now) }()
		assert.NoError(t, tokens.Check(usr, valid))
	})
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "5c1c8a4e-6d1d-4b8e-9d3a-0f5bfae1d2c7"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)
}
