package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsRecordNotFoundError(t *testing.T) {
	require.True(t, IsRecordNotFoundError(gorm.ErrRecordNotFound))
	require.True(t, IsRecordNotFoundError(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)))
	require.False(t, IsRecordNotFoundError(gorm.ErrInvalidTransaction))
	require.False(t, IsRecordNotFoundError(nil))
}
