package core

// Logger is the application-wide logging contract.
// expected args: error, map[string]interface{}, OrgContext
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// OrgContext tags a log entry with the tenant it concerns.
type OrgContext struct {
	ID   string
	Name string
}
