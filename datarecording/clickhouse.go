package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// clickHouseWriter is a DataRecorder backed by a ClickHouse server. It
// buffers entries and writes them with native batches; useful when many
// simulation campaigns feed one shared database.
type clickHouseWriter struct {
	conn clickhouse.Conn
	mu   sync.Mutex

	tables     map[string]*table
	batchSize  int
	entryCount int
}

// NewClickHouse creates a DataRecorder that writes into a ClickHouse
// database over the native protocol.
func NewClickHouse(
	host string,
	port int,
	database string,
	username string,
	password string,
) DataRecorder {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	w := &clickHouseWriter{
		conn:      conn,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

func clickHouseColumnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("unsupported field kind %s", kind))
	}
}

func (w *clickHouseWriter) CreateTable(tableName string, sampleEntry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	structType := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		columns = append(columns,
			field.Name+" "+clickHouseColumnType(field.Type.Kind()))
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = MergeTree()
		ORDER BY tuple()
	`, tableName, strings.Join(columns, ",\n\t\t\t"))

	if err := w.conn.Exec(context.Background(), createSQL); err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{
		structType: structType,
		entries:    []any{},
	}
}

func (w *clickHouseWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	table, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.flushLocked()
	}
}

func (w *clickHouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for table := range w.tables {
		tables = append(tables, table)
	}

	return tables
}

func (w *clickHouseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *clickHouseWriter) flushLocked() {
	if w.entryCount == 0 {
		return
	}

	ctx := context.Background()
	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		batch, err := w.conn.PrepareBatch(ctx,
			fmt.Sprintf("INSERT INTO %s", tableName))
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
		}

		for _, entry := range table.entries {
			values := structs.Values(entry)
			if err := batch.Append(values...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch for %s: %w", tableName, err))
		}

		table.entries = nil
	}

	w.entryCount = 0
}

func (w *clickHouseWriter) Close() error {
	w.Flush()
	return w.conn.Close()
}
