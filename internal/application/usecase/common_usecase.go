package usecase

// 共通の「未サポート」エラー型とヘルパー
type notSupportedError struct{ op string }

func (e notSupportedError) Error() string {
	return "usecase: operation not supported: " + e.op
}

// ErrNotSupported は未サポート操作を表すエラーを返します。
func ErrNotSupported(op string) error { return notSupportedError{op: op} }
