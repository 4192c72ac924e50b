package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"go.uber.org/zap"

	"netplayer/internal/logging"
)

const (
	DefaultGreptimeTable = "netplayer_deliveries"
	defaultGreptimePort  = 4001
	defaultBatchSize     = 100
	writeTimeout         = 5 * time.Second
)

// greptimeClient is the slice of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter batches records into rows of one GreptimeDB table.
type GreptimeWriter struct {
	client    greptimeClient
	table     string
	batchSize int
	pending   []Record
	dropped   int64
	log       *zap.Logger
}

// NewGreptimeWriter connects to endpoint ("host" or "host:port") and writes into
// database.table. An empty table name selects DefaultGreptimeTable.
func NewGreptimeWriter(endpoint, database, tableName string, log *zap.Logger) (*GreptimeWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to greptimedb at %s: %w", endpoint, err)
	}
	if tableName == "" {
		tableName = DefaultGreptimeTable
	}
	return &GreptimeWriter{
		client:    client,
		table:     tableName,
		batchSize: defaultBatchSize,
		log:       logging.OrNop(log),
	}, nil
}

func (w *GreptimeWriter) WriteRecord(r Record) error {
	w.pending = append(w.pending, r)
	if len(w.pending) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes every pending record as one batch. A batch is attempted once:
// on failure its rows are dropped and counted in Dropped.
func (w *GreptimeWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := len(w.pending)
	defer func() { w.pending = w.pending[:0] }()
	log := logging.OrNop(w.log)

	tbl, err := w.buildTable(w.pending)
	if err != nil {
		w.dropped += int64(rows)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.dropped += int64(rows)
		log.Warn("greptimedb write failed, batch dropped", zap.Int("rows", rows), zap.Error(err))
		return fmt.Errorf("writing %d rows to greptimedb: %w", rows, err)
	}
	log.Debug("greptimedb rows written", zap.Int("rows", rows))
	return nil
}

// Dropped is the number of rows lost to failed batches.
func (w *GreptimeWriter) Dropped() int64 { return w.dropped }

// Close flushes the last partial batch.
func (w *GreptimeWriter) Close() error {
	return w.Flush()
}

func (w *GreptimeWriter) buildTable(records []Record) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, fmt.Errorf("creating table %s: %w", w.table, err)
	}
	columns := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"run_id", true, types.STRING},
		{"source", true, types.INT64},
		{"dest", true, types.INT64},
		{"elapsed_ms", false, types.INT64},
		{"random_tag", false, types.STRING},
		{"payload", false, types.STRING},
		{"malformed", false, types.BOOLEAN},
		{"raw", false, types.STRING},
	}
	for _, c := range columns {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, fmt.Errorf("adding column %s: %w", c.name, err)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, fmt.Errorf("adding column ts: %w", err)
	}

	for _, r := range records {
		err := tbl.AddRow(r.RunID, int64(r.Source), int64(r.Dest), r.ElapsedMS,
			r.RandomTag, r.Payload, r.Malformed, r.Raw, r.At)
		if err != nil {
			return nil, fmt.Errorf("adding row: %w", err)
		}
	}
	return tbl, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptimedb endpoint is empty")
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid greptimedb port %q", portStr)
	}
	return host, port, nil
}
