package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name   string
		req    SignUpRequest
		field  string
		reason string
	}{
		{
			name:   "missing name",
			req:    SignUpRequest{Name: "  ", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"},
			field:  "name",
			reason: ReasonRequired,
		},
		{
			name:   "bad email",
			req:    SignUpRequest{Name: "Dara", Email: "dara@mail", Password: "secret1", ConfirmPassword: "secret1"},
			field:  "email",
			reason: ReasonInvalidFormat,
		},
		{
			name:   "short password",
			req:    SignUpRequest{Name: "Dara", Email: "dara@mail.com", Password: "abc", ConfirmPassword: "abc"},
			field:  "password",
			reason: ReasonTooShort,
		},
		{
			name:   "confirmation mismatch",
			req:    SignUpRequest{Name: "Dara", Email: "dara@mail.com", Password: "secret1", ConfirmPassword: "secret2"},
			field:  "confirmPassword",
			reason: ReasonMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)

			_, err := fx.front.SignUp(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.reason, ve.Reason)

			assert.Zero(t, fx.repo.writes(usersKey))
			assert.Zero(t, fx.repo.writes(userKey))
		})
	}
}

func TestSignUp_CreatesSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fx := newFixture(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	sub := fx.front.Subscribe()
	defer sub.Close()

	u := fx.signUp(t, " Dara ", "Dara@Mail.com")
	assert.Equal(t, "Dara", u.Name)
	assert.Equal(t, now.UnixMilli(), u.ID)
	assert.True(t, u.Wallet.IsZero())
	assert.True(t, u.JoinDate.Equal(now))
	assert.NotEqual(t, "secret1", u.PasswordHash)

	current, err := fx.front.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, current.ID)
	assert.ElementsMatch(t, []notify.Signal{notify.WalletUpdated, notify.OrderHistoryUpdated}, drain(sub))

	second := fx.signUp(t, "Sok", "sok@mail.com")
	assert.Equal(t, u.ID+1, second.ID)

	_, err = fx.front.SignUp(ctx, SignUpRequest{
		Name: "Other", Email: "DARA@mail.COM", Password: "secret1", ConfirmPassword: "secret1",
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonTaken, ve.Reason)
}

func TestSignUp_SessionWriteFailureRestoresDirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.repo.failWrites(userKey, errDiskFull)

	_, err := fx.front.SignUp(ctx, SignUpRequest{
		Name: "Dara", Email: "dara@mail.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	var se *StorageError
	require.ErrorAs(t, err, &se)

	assert.Empty(t, fx.front.loadDirectory(ctx))
}

func TestLogInLogOut(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	u := fx.signUp(t, "Dara", "dara@mail.com")

	require.NoError(t, fx.front.LogOut(ctx))
	_, err := fx.front.CurrentUser(ctx)
	var ae *AuthError
	require.ErrorAs(t, err, &ae)

	_, err = fx.front.LogIn(ctx, "dara@mail.com", "wrong-pass")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "invalid credentials", ae.Reason)

	_, err = fx.front.LogIn(ctx, "nobody@mail.com", "secret1")
	require.ErrorAs(t, err, &ae)

	logged, err := fx.front.LogIn(ctx, "  DARA@mail.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.Len(t, fx.front.loadDirectory(ctx), 1)
}

func TestCurrentUser_PrefersDirectoryEntry(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	u := fx.signUp(t, "Dara", "dara@mail.com")

	users := fx.front.loadDirectory(ctx)
	users[0].Wallet = decimal.NewFromInt(30)
	data, err := json.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, fx.repo.MemoryStore.Set(ctx, fx.front.key(usersKey), data))

	current, err := fx.front.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, current.ID)
	assert.Equal(t, "30", current.Wallet.String())
}

func TestUpdateProfile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.signUp(t, "Sok", "sok@mail.com")
	fx.signUp(t, "Dara", "dara@mail.com")

	phone := " 012 345 678 "
	name := "Dara K."
	u, err := fx.front.UpdateProfile(ctx, model.ProfileUpdate{Name: &name, PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Dara K.", u.Name)
	assert.Equal(t, "012 345 678", u.PhoneNumber)
	assert.Equal(t, "dara@mail.com", u.Email)

	users := fx.front.loadDirectory(ctx)
	assert.Equal(t, "Dara K.", users[1].Name)

	taken := "SOK@mail.com"
	_, err = fx.front.UpdateProfile(ctx, model.ProfileUpdate{Email: &taken})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonTaken, ve.Reason)

	bad := "not-an-email"
	_, err = fx.front.UpdateProfile(ctx, model.ProfileUpdate{Email: &bad})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonInvalidFormat, ve.Reason)
}

func TestUpdateProfile_DirectoryFailureRollsBackSession(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.signUp(t, "Dara", "dara@mail.com")

	fx.repo.failWrites(usersKey, errDiskFull)
	name := "Changed"
	_, err := fx.front.UpdateProfile(ctx, model.ProfileUpdate{Name: &name})
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, usersKey, se.Key)

	session, ok := loadDoc[model.User](ctx, fx.front, userKey)
	require.True(t, ok)
	assert.Equal(t, "Dara", session.Name)
}

func TestDebitCredit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.front.Credit(ctx, decimal.NewFromInt(5))
	var ae *AuthError
	require.ErrorAs(t, err, &ae)

	fx.signUp(t, "Dara", "dara@mail.com")

	_, err = fx.front.Credit(ctx, decimal.Zero)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = fx.front.Debit(ctx, decimal.NewFromInt(-1))
	require.ErrorAs(t, err, &ve)

	balance, err := fx.front.Credit(ctx, decimal.RequireFromString("20.50"))
	require.NoError(t, err)
	assert.Equal(t, "20.50", balance.StringFixed(2))

	_, err = fx.front.Debit(ctx, decimal.NewFromInt(25))
	var ife *InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "4.50", ife.Shortfall.StringFixed(2))
	assert.Equal(t, "20.50", fx.balance(t).StringFixed(2))

	balance, err = fx.front.Debit(ctx, decimal.RequireFromString("20.50"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	balance, err = fx.front.Debit(ctx, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
