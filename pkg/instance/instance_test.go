package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrecedence(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("WORKER_ID", " cron-b ")
	assert.Equal(t, "cron-b", GetID())

	t.Setenv("STOREFRONT_INSTANCE_ID", "api-7")
	assert.Equal(t, "api-7", GetID())
}

func TestGetIDFallsBackToHost(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("WORKER_ID", "")
	assert.NotEmpty(t, GetID())
}
