package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS sync_tasks (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  task_id CHAR(36) NOT NULL,
  topic VARCHAR(32) NOT NULL,
  payload JSON NOT NULL,
  attempt INT NOT NULL DEFAULT 0,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  consumer VARCHAR(128) NULL,
  lease_until DATETIME(3) NULL,
  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
  PRIMARY KEY (id),
  KEY idx_sync_tasks_claim (topic, status, id)
) ENGINE=InnoDB`

// MySQLBroker stores messages as rows of sync_tasks. A claim is a lease:
// processing rows whose lease expired are claimable again, which covers
// consumers that died without settling.
type MySQLBroker struct {
	db       *sqlx.DB
	leaseTTL time.Duration
}

func NewMySQLBroker(db *sqlx.DB, leaseTTL time.Duration) *MySQLBroker {
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &MySQLBroker{db: db, leaseTTL: leaseTTL}
}

func (b *MySQLBroker) Declare(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, mysqlSchema)
	return err
}

func (b *MySQLBroker) Publish(ctx context.Context, e Envelope) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx, `
INSERT INTO sync_tasks (task_id, topic, payload, attempt, status)
VALUES (?, ?, ?, ?, 'pending')
`, e.ID, string(e.Topic()), string(payload), e.Attempt)
	return err
}

type taskRow struct {
	ID      uint64 `db:"id"`
	Payload string `db:"payload"`
	Attempt int    `db:"attempt"`
}

func (b *MySQLBroker) Receive(ctx context.Context, topic Topic, consumer string) (Delivery, bool, error) {
	tx, err := b.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Delivery{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var row taskRow
	err = tx.GetContext(ctx, &row, `
SELECT id, payload, attempt
FROM sync_tasks
WHERE topic = ?
  AND (status = 'pending' OR (status = 'processing' AND lease_until < UTC_TIMESTAMP(3)))
ORDER BY id ASC
LIMIT 1
FOR UPDATE SKIP LOCKED
`, string(topic))
	if errors.Is(err, sql.ErrNoRows) {
		return Delivery{}, false, nil
	}
	if err != nil {
		return Delivery{}, false, err
	}

	_, err = tx.ExecContext(ctx, `
UPDATE sync_tasks
SET status = 'processing', consumer = ?, lease_until = UTC_TIMESTAMP(3) + INTERVAL ? MICROSECOND
WHERE id = ?
`, consumer, b.leaseTTL.Microseconds(), row.ID)
	if err != nil {
		return Delivery{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Delivery{}, false, err
	}

	d := Delivery{Topic: topic, Consumer: consumer, Receipt: strconv.FormatUint(row.ID, 10)}

	e, err := Decode([]byte(row.Payload))
	if err != nil {
		// Undecodable rows are handed back with an empty envelope so the
		// caller can dead-letter them by receipt.
		return d, true, err
	}
	e.Attempt = row.Attempt
	d.Envelope = e
	return d, true, nil
}

func (b *MySQLBroker) Settle(ctx context.Context, d Delivery, outcome Outcome) error {
	id, err := strconv.ParseUint(d.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("bad receipt %q: %w", d.Receipt, err)
	}

	switch outcome {
	case Ack:
		_, err = b.db.ExecContext(ctx, `DELETE FROM sync_tasks WHERE id = ?`, id)
	case Requeue:
		_, err = b.db.ExecContext(ctx, `
UPDATE sync_tasks
SET status = 'pending', attempt = attempt + 1, consumer = NULL, lease_until = NULL
WHERE id = ?
`, id)
	case DeadLetter:
		_, err = b.db.ExecContext(ctx, `
UPDATE sync_tasks
SET status = 'dead', lease_until = NULL
WHERE id = ?
`, id)
	default:
		return fmt.Errorf("unknown outcome %d", outcome)
	}
	return err
}

// Close is a no-op; the connection pool belongs to the caller.
func (b *MySQLBroker) Close() error { return nil }
