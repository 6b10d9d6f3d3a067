package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/jobflow/internal/repository"
)

// SessionDeleter はリポジトリのセッション削除メソッドで満たされること
var _ SessionDeleter = (*repository.PostgresSessionRepo)(nil)

// SessionDeleter インターフェースに対するモック実装
type mockSessionDeleter struct {
	deleteCalled int
	swept        int64
	err          error
}

func (m *mockSessionDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	m.deleteCalled++
	return m.swept, m.err
}

type mockSweepMetrics struct {
	sweptCounts []int
}

func (m *mockSweepMetrics) RecordSessionsSwept(count int) {
	m.sweptCounts = append(m.sweptCounts, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewSweepJob_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	job := NewSweepJob(&mockSessionDeleter{}, logger)

	if job == nil {
		t.Fatal("NewSweepJob は nil を返してはならない")
	}
}

func TestSweepJob_Run_DeletesThroughRepository(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 5}
	job := NewSweepJob(mock, logger)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if mock.deleteCalled != 1 {
		t.Fatalf("DeleteExpired の呼び出し回数 = %d, want 1", mock.deleteCalled)
	}
}

func TestSweepJob_Run_LogsSweptCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 42}
	job := NewSweepJob(mock, logger)

	_ = job.Run(context.Background())

	// ログ出力に削除件数が含まれること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["swept_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに swept_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestSweepJob_Run_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 7}
	metrics := &mockSweepMetrics{}
	job := NewSweepJob(mock, logger).WithMetrics(metrics)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(metrics.sweptCounts) != 1 {
		t.Fatalf("RecordSessionsSwept の呼び出し回数 = %d, want 1", len(metrics.sweptCounts))
	}
	if metrics.sweptCounts[0] != 7 {
		t.Errorf("swept count = %d, want 7", metrics.sweptCounts[0])
	}
}

func TestSweepJob_Run_NoMetrics_DoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	job := NewSweepJob(&mockSessionDeleter{swept: 3}, logger)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
}

func TestSweepJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{err: sql.ErrConnDone}
	job := NewSweepJob(mock, logger)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}

	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
}

func TestSweepJob_Run_LogsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{err: sql.ErrConnDone}
	job := NewSweepJob(mock, logger)

	_ = job.Run(context.Background())

	// エラーログが出力されていること
	logOutput := buf.String()
	if !strings.Contains(logOutput, "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", logOutput)
	}
}

func TestSweepJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 0}
	job := NewSweepJob(mock, logger)

	// 1回目の実行
	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}

	// 2回目の実行（冪等性: 削除対象がなくてもエラーにならない）
	err = job.Run(context.Background())
	if err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}

	if mock.deleteCalled != 2 {
		t.Errorf("DeleteExpired の呼び出し回数 = %d, want 2", mock.deleteCalled)
	}
}

func TestSweepJob_Run_LogsZeroSweptCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 0}
	job := NewSweepJob(mock, logger)

	_ = job.Run(context.Background())

	// 0件削除でもログが出力されること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["swept_count"]; ok {
			if count == float64(0) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("0件削除時にもログに swept_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestSweepJob_Run_LogsExecutionTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSessionDeleter{swept: 3}
	job := NewSweepJob(mock, logger)

	_ = job.Run(context.Background())

	// 処理時間がログに含まれること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry["duration_ms"]; ok {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}
