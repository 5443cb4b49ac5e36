package ussd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	logsTickerInterval  = 5 * time.Second
	retryTickerInterval = 30 * time.Second
	failedBulkDir       = "failed-bulk-inserts"
	bulkInsertSize      = 1000
)

// LogSaver buffers callback audit rows on a channel and bulk-inserts them in
// the background. Batches that fail to insert are spilled to JSON files and
// retried until they land.
type LogSaver struct {
	db      *gorm.DB
	logger  *zap.SugaredLogger
	enabled bool
	table   string
	logsCh  chan *SessionLog
}

// NewLogSaver migrates the logs table and starts the background workers.
// When enabled is false, Push is a no-op.
func NewLogSaver(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger, enabled bool, tableName string) (*LogSaver, error) {
	switch {
	case db == nil:
		return nil, errors.New("missing sql db")
	case logger == nil:
		return nil, errors.New("missing logger")
	}

	if tableName == "" {
		tableName = defaultSessionLogsTable
	}

	ls := &LogSaver{
		db:      db,
		logger:  logger,
		enabled: enabled,
		table:   tableName,
		logsCh:  make(chan *SessionLog, bulkInsertSize),
	}

	if !enabled {
		return ls, nil
	}

	if !db.Migrator().HasTable(ls.table) {
		if err := db.Table(ls.table).AutoMigrate(&SessionLog{}); err != nil {
			return nil, fmt.Errorf("failed to auto migrate %s table: %w", ls.table, err)
		}
	}

	go ls.insertWorker(ctx)
	go ls.retryWorker(ctx)

	return ls, nil
}

// Push queues one audit row. Never blocks the callback path: when the buffer
// is full the row is dropped and counted against the logger.
func (ls *LogSaver) Push(ctx context.Context, p Payload, state State, reply Reply, succeeded bool) {
	if !ls.enabled {
		return
	}

	row := &SessionLog{
		SessionID:   p.SessionID(),
		PhoneNumber: p.PhoneNumber(),
		State:       string(state),
		Text:        p.Text(),
		UserInput:   p.CurrentInput(),
		Response:    Render(reply),
		Succeeded:   succeeded,
		CreatedAt:   time.Now(),
	}

	select {
	case <-ctx.Done():
	case ls.logsCh <- row:
	default:
		ls.logger.Warnw("ussd log buffer full, dropping row", "session_id", row.SessionID)
	}
}

func (ls *LogSaver) insertWorker(ctx context.Context) {
	ticker := time.NewTicker(logsTickerInterval)
	defer ticker.Stop()

	logs := make([]*SessionLog, 0, bulkInsertSize)

	flush := func() {
		if len(logs) == 0 {
			return
		}
		if err := ls.insertBatch(logs); err != nil {
			ls.logger.Errorw("ussd logs bulk insert failed, spilling to file", "count", len(logs), "error", err)
			ls.spill(logs)
		}
		logs = logs[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case row := <-ls.logsCh:
			logs = append(logs, row)
			if len(logs) >= bulkInsertSize {
				flush()
				ticker.Reset(logsTickerInterval)
			}
		}
	}
}

func (ls *LogSaver) insertBatch(logs []*SessionLog) error {
	return ls.db.Transaction(func(tx *gorm.DB) error {
		return tx.Table(ls.table).CreateInBatches(logs, len(logs)+1).Error
	})
}

func (ls *LogSaver) spill(logs []*SessionLog) {
	if _, err := os.Stat(failedBulkDir); os.IsNotExist(err) {
		if err := os.Mkdir(failedBulkDir, 0755); err != nil {
			ls.logger.Errorw("failed to create spill directory", "error", err)
			return
		}
	}

	fileName := fmt.Sprintf("%s/bulk-%d.json", failedBulkDir, time.Now().UnixNano())

	f, err := os.Create(fileName)
	if err != nil {
		ls.logger.Errorw("failed to create spill file", "error", err)
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(logs); err != nil {
		ls.logger.Errorw("failed to write spill file", "file", fileName, "error", err)
	}
}

// retryWorker re-inserts spilled batches. Inserts use ON CONFLICT DO NOTHING
// so a batch that half-landed before a crash is safe to replay.
func (ls *LogSaver) retryWorker(ctx context.Context) {
	ticker := time.NewTicker(retryTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		entries, err := os.ReadDir(failedBulkDir)
		if err != nil {
			if !os.IsNotExist(err) {
				ls.logger.Warnw("failed to read spill directory", "error", err)
			}
			continue
		}

		for _, entry := range entries {
			fileName := filepath.Join(failedBulkDir, entry.Name())

			buf, err := os.ReadFile(fileName)
			if err != nil {
				ls.logger.Warnw("failed to read spill file", "file", fileName, "error", err)
				continue
			}

			logs := make([]*SessionLog, 0, bulkInsertSize)
			if err := json.Unmarshal(buf, &logs); err != nil {
				ls.logger.Warnw("failed to unmarshal spill file", "file", fileName, "error", err)
				continue
			}

			err = ls.db.Transaction(func(tx *gorm.DB) error {
				return tx.Table(ls.table).Clauses(clause.OnConflict{DoNothing: true}).
					CreateInBatches(logs, bulkInsertSize).Error
			})
			if err != nil {
				ls.logger.Warnw("failed to replay spill file", "file", fileName, "error", err)
				continue
			}

			if err := os.Remove(fileName); err != nil {
				ls.logger.Warnw("failed to remove spill file", "file", fileName, "error", err)
				continue
			}

			ls.logger.Infow("replayed spilled ussd logs", "file", fileName, "count", len(logs))
		}
	}
}
