package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "Ghazal123", false},
		{"Exactly Min Length", "Abcdefg1", false},
		{"Too Short", "Abcdef1", true},
		{"No Upper", "ghazal123", true},
		{"No Digit", "GhazalNazm", true},
		{"Special Characters", "Ghazal123!", true},
		{"Non ASCII", "Ängstrom12", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("faiz@example.com"))
	assert.Error(t, ValidateEmail("Faiz <faiz@example.com>"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("mir_taqi"))
	assert.NoError(t, ValidateUsername("غالب"))
	assert.ErrorIs(t, ValidateUsername("ab"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("has space"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("Admin"), ErrReservedName)
}

func TestRequired(t *testing.T) {
	assert.Equal(t, "", Required(Field{"a", "x"}, Field{"b", "y"}))
	assert.Equal(t, "b", Required(Field{"a", "x"}, Field{"b", "  "}, Field{"c", ""}))
}
