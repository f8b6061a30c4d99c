package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteBatch(points []*domain.DataPoint) error {
	if len(points) == 0 {
		return nil
	}

	// INSERT ... ON CONFLICT DO NOTHING keeps retries idempotent.
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (node_id, ts, seq, value, transform_ver) VALUES ")

	args := make([]any, 0, len(points)*5)
	for i, p := range points {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))
		val, err := json.Marshal(p.Value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}

		args = append(args,
			p.NodeID,
			p.Timestamp,
			p.Seq,
			val,
			p.TransformVer,
		)
	}

	b.WriteString(" ON CONFLICT (node_id, ts, seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.Sink = (*TimescaleSink)(nil)
