package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testathon/shopcheck/internal/fixtures"
)

func openLogin(t *testing.T) *LoginPage {
	t.Helper()
	base, _ := replica(t, fullPanel())
	page := NewLoginPage(base, fixtures.MustLoad().Login.Path)
	require.NoError(t, page.Open(t.Context()))
	return page
}

func TestLoginPage_Users(t *testing.T) {
	login := fixtures.MustLoad().Login

	for _, user := range login.Users {
		t.Run(user.Username, func(t *testing.T) {
			page := openLogin(t)
			ctx := t.Context()
			assert.True(t, page.IsLogoDisplayed(ctx))

			require.NoError(t, page.Login(ctx, user.Username, login.Password))

			if user.ExpectError != "" {
				text, err := page.ErrorText(ctx)
				require.NoError(t, err)
				assert.Equal(t, user.ExpectError, text)
				assert.False(t, page.IsLoggedIn(ctx))
				return
			}

			require.NoError(t, page.WaitForLogin(ctx))
			require.NoError(t, page.Logout(ctx))
			assert.False(t, page.IsLoggedIn(ctx))
		})
	}
}

func TestLoginPage_InvalidCredentials(t *testing.T) {
	login := fixtures.MustLoad().Login

	tests := []struct {
		name     string
		username string
		password string
		want     string
	}{
		{name: "wrong password", username: "demouser", password: login.InvalidPassword, want: login.InvalidCredentialsError},
		{name: "missing password", username: "demouser", want: login.EmptyFieldsError},
		{name: "empty fields", want: login.EmptyFieldsError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := openLogin(t)
			ctx := t.Context()

			require.NoError(t, page.Login(ctx, tt.username, tt.password))
			text, err := page.ErrorText(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestLoginPage_UnknownOption(t *testing.T) {
	page := openLogin(t)
	err := page.Login(t.Context(), "nobody", "")
	assert.True(t, IsTimeout(err), "got %v", err)
}
