package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"opcflux/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "data_points")
	ts := time.Now()

	points := []*domain.DataPoint{
		{
			NodeID:       "ns=2;s=Demo.Temperature",
			Value:        float64(42),
			Timestamp:    ts,
			Seq:          1,
			TransformVer: 2,
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO data_points (node_id, ts, seq, value, transform_ver) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (node_id, ts, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("ns=2;s=Demo.Temperature", ts, uint64(1), sqlmock.AnyArg(), uint16(2)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteBatch(points); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoPoints(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "data_points")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "data_points")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
