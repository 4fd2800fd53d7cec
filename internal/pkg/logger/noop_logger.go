package logger

// NoopLogger discards everything. Used in tests and as a safe default when
// a component receives no logger.
type NoopLogger struct{}

var _ ILogger = NoopLogger{}

func NewNoopLogger() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(module, message string, details map[string]interface{}) {}
func (NoopLogger) Info(module, message string, details map[string]interface{})  {}
func (NoopLogger) Warn(module, message string, details map[string]interface{})  {}
func (NoopLogger) Error(module, message string, details map[string]interface{}) {}
func (NoopLogger) Sync() error                                                  { return nil }
