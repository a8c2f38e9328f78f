package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerify(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		want    uint
		wantErr error
	}{
		{
			name:  "id claim",
			token: sign(t, testSecret, jwt.MapClaims{"id": 42, "exp": exp}),
			want:  42,
		},
		{
			name:  "user_id claim with bearer prefix",
			token: "Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": 7, "exp": exp}),
			want:  7,
		},
		{
			name:  "string subject",
			token: sign(t, testSecret, jwt.MapClaims{"sub": "19", "exp": exp}),
			want:  19,
		},
		{
			name:    "empty",
			token:   "  ",
			wantErr: ErrMissingToken,
		},
		{
			name:    "wrong secret",
			token:   sign(t, "other", jwt.MapClaims{"id": 42, "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			token:   sign(t, testSecret, jwt.MapClaims{"id": 42, "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "no user claim",
			token:   sign(t, testSecret, jwt.MapClaims{"email": "a@b.c", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verifier.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
