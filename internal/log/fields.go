package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldKind       = "kind"
	FieldAmount     = "amount"
	FieldDate       = "date"
	FieldBalance    = "balance"
	FieldChatID     = "chat_id"
	FieldCommand    = "command"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentLedger = "ledger"
	ComponentStore  = "store"
	ComponentBot    = "bot"
)
