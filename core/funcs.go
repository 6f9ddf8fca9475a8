package core

import "context"

// External function names.
const (
	FuncSyncRegistration = "sync-registration"
	FuncLinkParentSchool = "link-parent-school"
	FuncNotifyParent     = "notify-parent"
)

// FunctionCaller invokes an external serverless function with a JSON payload
// and optionally decodes the JSON response into result (when result != nil).
// Implementations live under services/functions.
type FunctionCaller interface {
	Invoke(ctx context.Context, name string, payload, result interface{}) error
}
