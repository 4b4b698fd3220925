package handler

// MetricsRecorder はハンドラーが業務イベントのメトリクスを記録するための
// インターフェース。metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordAuthSuccess(kind string)
	RecordAuthFailure(kind string)
	RecordTaskMutation(operation string)
}

// noopMetricsRecorder は何も記録しないMetricsRecorder。
// メトリクス収集が不要な構成やテストで使用する。
type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordAuthSuccess(kind string)      {}
func (noopMetricsRecorder) RecordAuthFailure(kind string)      {}
func (noopMetricsRecorder) RecordTaskMutation(operation string) {}

// ensureMetricsRecorder はnilの場合にnoop実装を返す。
func ensureMetricsRecorder(recorder MetricsRecorder) MetricsRecorder {
	if recorder == nil {
		return noopMetricsRecorder{}
	}
	return recorder
}
