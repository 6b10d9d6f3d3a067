// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// expires_atを過ぎたセッション行を定期バッチで削除する。
// アクティブなセッションの検証はリクエスト時のexpires_at比較で行われるため、
// このジョブは利便性のためのゴミ掃除であり、遅延しても認可には影響しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionDeleter は期限切れセッションの削除を抽象化するインターフェース。
// repository.SessionRepository がこれを満たす。削除条件（expires_at比較）は
// リポジトリ側に一元化されており、このジョブはSQLを持たない。
type SessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepMetrics は削除件数をメトリクスに記録するためのインターフェース。
type SweepMetrics interface {
	RecordSessionsSwept(count int)
}

// SweepJob は期限切れセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SweepJob struct {
	sessions SessionDeleter
	logger   *slog.Logger
	metrics  SweepMetrics // nilの場合は記録しない
}

// NewSweepJob は新しいSweepJobを生成する。
func NewSweepJob(sessions SessionDeleter, logger *slog.Logger) *SweepJob {
	return &SweepJob{
		sessions: sessions,
		logger:   logger,
	}
}

// WithMetrics は削除件数の記録先を設定する。
func (j *SweepJob) WithMetrics(m SweepMetrics) *SweepJob {
	j.metrics = m
	return j
}

// Run は期限切れのセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	sweptCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッション削除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッション削除の実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(int(sweptCount))
	}

	duration := time.Since(start)
	j.logger.Info("セッション削除ジョブが完了しました",
		slog.Int64("swept_count", sweptCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
