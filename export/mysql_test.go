package export

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

// dryRun builds statements without a server. The default transaction is
// skipped since beginning one would dial the DSN.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/ordinals",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func event() index.CommitEvent {
	tx := getter.NewChainBuilder("export").Coinbase(5, 10)
	return index.CommitEvent{
		Height: 3,
		Result: &index.BlockResult{Created: []index.OutputRanges{
			{OutPoint: tx.OutPoint(0), Ranges: []ord.SatRange{{Start: 0, End: 5}}},
			{OutPoint: tx.OutPoint(1), Ranges: []ord.SatRange{{Start: 5, End: 10}, {Start: 20, End: 25}}},
		}},
	}
}

func TestRows(t *testing.T) {
	e := event()
	rows := Rows(e)
	require.Len(t, rows, 3)
	assert.Equal(t, SatRangeRow{Height: 3, OutPoint: e.Result.Created[1].OutPoint.String(), Position: 1, Start: 20, End: 25}, rows[2])
	assert.Empty(t, Rows(index.CommitEvent{Result: &index.BlockResult{}}))
}

func TestStatements(t *testing.T) {
	x := newExporter(dryRun(t))

	tx := x.insert(x.db, event())
	require.NoError(t, tx.Error)
	assert.Equal(t, "INSERT INTO `sat_ranges` (`height`,`outpoint`,`position`,`start`,`end`) VALUES (?,?,?,?,?),(?,?,?,?,?),(?,?,?,?,?)", tx.Statement.SQL.String())
	require.Len(t, tx.Statement.Vars, 3*5)
	assert.Equal(t, []interface{}{uint64(3), event().Result.Created[1].OutPoint.String(), 1, uint64(20), uint64(25)}, tx.Statement.Vars[10:])

	tx = x.remove(x.db, index.RollbackEvent{Height: 4})
	require.NoError(t, tx.Error)
	assert.Equal(t, "DELETE FROM `sat_ranges` WHERE height >= ?", tx.Statement.SQL.String())
	assert.Equal(t, []interface{}{uint64(4)}, tx.Statement.Vars)

	// Nothing created, nothing sent.
	tx = x.insert(x.db, index.CommitEvent{Height: 5, Result: &index.BlockResult{}})
	assert.Empty(t, tx.Statement.SQL.String())
}

func TestFailedWritesAreCounted(t *testing.T) {
	db := dryRun(t)
	down := errors.New("mirror unavailable")
	fail := func(tx *gorm.DB) { _ = tx.AddError(down) }
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_create", fail))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", fail))
	x := newExporter(db)

	inserts := metrics.ExportFailures.WithLabelValues("insert")
	deletes := metrics.ExportFailures.WithLabelValues("delete")
	insertsBefore, deletesBefore := testutil.ToFloat64(inserts), testutil.ToFloat64(deletes)

	x.OnCommit(event())
	assert.Equal(t, insertsBefore+1, testutil.ToFloat64(inserts))

	// An empty block writes nothing and cannot fail.
	x.OnCommit(index.CommitEvent{Height: 5, Result: &index.BlockResult{}})
	assert.Equal(t, insertsBefore+1, testutil.ToFloat64(inserts))

	x.OnRollback(index.RollbackEvent{Height: 4})
	assert.Equal(t, deletesBefore+1, testutil.ToFloat64(deletes))
}
