package core

// Logger is the application logger.
// args may contain errors, map[string]interface{} fields and the user.User the log is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
