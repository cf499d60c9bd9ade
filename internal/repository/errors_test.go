package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	require.True(t, isUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	require.True(t, isUniqueViolation(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")))
	require.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}
