package log

// Common field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldItemID      = "item_id"
	FieldCategory    = "category"
	FieldCadence     = "cadence"
	FieldAmount      = "amount"
	FieldPeriodStart = "period_start"
	FieldPeriodEnd   = "period_end"
	FieldTransferID  = "transfer_id"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentRollover = "rollover"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
)
