package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/dbtest"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
)

type ctxKey struct{}

func TestTableDBBindsContext(t *testing.T) {
	conn := dbtest.Open(t)
	table := NewTable[models.DownloadEvent](conn)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := table.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, conn, table.DB(nil))
}

func TestTableWithTx(t *testing.T) {
	conn := dbtest.Open(t)
	table := NewTable[models.DownloadEvent](conn)

	assert.Same(t, conn, table.WithTx(nil).db)

	tx := conn.Begin()
	defer tx.Rollback()
	assert.Same(t, tx, table.WithTx(tx).db)
	assert.Same(t, conn, table.db)
}

func TestFirstReturnsNilWhenMissing(t *testing.T) {
	conn := dbtest.Open(t)
	table := NewTable[models.Asset](conn)

	got, err := First[models.Asset](table.DB(context.Background()).Where("id = ?", uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Error(t, table.Insert(context.Background(), nil))
}
