package export

import (
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

// SatRangeRow mirrors one range of one output created at a height.
type SatRangeRow struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement:true"`
	Height   uint64 `gorm:"type:bigint unsigned;index:idx_height;column:height"`
	OutPoint string `gorm:"type:varchar(80);index:idx_outpoint;column:outpoint"`
	Position int    `gorm:"type:int;column:position"`
	Start    uint64 `gorm:"type:bigint unsigned;index:idx_start;column:start"`
	End      uint64 `gorm:"type:bigint unsigned;column:end"`
}

func (SatRangeRow) TableName() string {
	return "sat_ranges"
}

// MySQLExporter mirrors committed ranges into MySQL. Rows at or above a
// rolled back height are deleted, so the mirror follows reorgs.
type MySQLExporter struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewMySQLExporter(dsn string) (*MySQLExporter, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Warn),
		CreateBatchSize: 500,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SatRangeRow{}); err != nil {
		return nil, err
	}
	return newExporter(db), nil
}

func newExporter(db *gorm.DB) *MySQLExporter {
	return &MySQLExporter{db: db, log: logrus.WithField("component", "export")}
}

// Rows flattens the outputs created by one committed height.
func Rows(e index.CommitEvent) []SatRangeRow {
	var rows []SatRangeRow
	for _, out := range e.Result.Created {
		for i, r := range out.Ranges {
			rows = append(rows, SatRangeRow{
				Height:   uint64(e.Height),
				OutPoint: out.OutPoint.String(),
				Position: i,
				Start:    r.Start,
				End:      r.End,
			})
		}
	}
	return rows
}

func (x *MySQLExporter) insert(db *gorm.DB, e index.CommitEvent) *gorm.DB {
	rows := Rows(e)
	if len(rows) == 0 {
		return db
	}
	return db.Create(&rows)
}

func (x *MySQLExporter) remove(db *gorm.DB, e index.RollbackEvent) *gorm.DB {
	return db.Where("height >= ?", uint64(e.Height)).Delete(&SatRangeRow{})
}

func (x *MySQLExporter) OnCommit(e index.CommitEvent) {
	if err := x.insert(x.db, e).Error; err != nil {
		metrics.ExportFailures.WithLabelValues("insert").Inc()
		x.log.WithError(err).WithField("height", e.Height).Error("Failed to export ranges")
	}
}

func (x *MySQLExporter) OnRollback(e index.RollbackEvent) {
	if err := x.remove(x.db, e).Error; err != nil {
		metrics.ExportFailures.WithLabelValues("delete").Inc()
		x.log.WithError(err).WithField("height", e.Height).Error("Failed to delete exported ranges")
	}
}

// Track mirrors every commit and rollback of b.
func (x *MySQLExporter) Track(b *index.Builder) {
	b.OnCommit(x.OnCommit)
	b.OnRollback(x.OnRollback)
}

func (x *MySQLExporter) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
