package cryptox

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSecretStrength(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		unmet  []string
	}{
		{"strong", "Str0ng!Pass1234", nil},
		{"unicode strong", "Пароль-Сильный9", nil},
		{"too short", "Sh0rt!", []string{"at least 12 characters"}},
		{"no upper", "str0ng!pass1234", []string{"an uppercase letter"}},
		{"no lower", "STR0NG!PASS1234", []string{"a lowercase letter"}},
		{"no digit", "Strong!Password", []string{"a digit"}},
		{"no symbol", "Str0ngPass1234", []string{"a symbol"}},
		{"everything missing", "", []string{"at least 12 characters", "an uppercase letter", "a lowercase letter", "a digit", "a symbol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSecretStrength([]byte(tt.secret))
			if tt.unmet == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrWeakSecret)
			var wse *WeakSecretError
			require.True(t, errors.As(err, &wse))
			assert.Equal(t, tt.unmet, wse.Unmet)
		})
	}
}
