package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/webtest"
)

func TestSeedIsRepeatable(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()

	n, err := Seed(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = Seed(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	db.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestCreateStaff(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()

	_, _, err := CreateStaff(ctx, db, "boss@example.com", "short")
	assert.Error(t, err)

	user, created, err := CreateStaff(ctx, db, "Boss@Example.com", "password123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, user.IsStaff)
	assert.True(t, user.CheckPassword("password123"))

	existing := webtest.CreateUser(t, db, "clerk@example.com")
	user, created, err = CreateStaff(ctx, db, "clerk@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, user.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, existing.ID).Error)
	assert.True(t, stored.IsStaff)

	_, _, err = CreateStaff(ctx, db, "nope", "password123")
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"}, {"migrate"}, {"seed"},
		{"admin", "create-staff"}, {"admin", "import-products"},
		{"admin", "export-products"}, {"admin", "order-status"},
		{"media", "backup"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
