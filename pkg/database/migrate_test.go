package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrator_SQLiteUpAndReset(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := NewSQLite(dsn, "warn")
	require.NoError(t, err)

	m, err := NewMigrator(db, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Up())
	// 再次执行应为无变更
	require.NoError(t, m.Up())

	for _, table := range []string{"equipment", "users", "audit_logs", "notifications", "events", "job_requests", "settings"} {
		assert.True(t, db.Migrator().HasTable(table), "缺少表 %s", table)
	}

	require.NoError(t, db.Exec(`INSERT INTO equipment (id, category, brand, division) VALUES ('X-1', 'HPLC', 'Acme', 'MS')`).Error)

	require.NoError(t, m.Reset())

	var count int64
	require.NoError(t, db.Table("equipment").Count(&count).Error)
	assert.Equal(t, int64(0), count, "重置后数据应被清空")
}
