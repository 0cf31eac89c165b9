package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldActorID    = "actor_id"
	FieldBankID     = "bank_id"
	FieldAllowance  = "allowance_id"
	FieldAmount     = "amount"
	FieldCount      = "count"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentScheduler = "scheduler"
	ComponentAuth      = "auth"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentWebsocket = "websocket"
	ComponentSecurity  = "security"
)

const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpUpdate   = "update"
	OpPurchase = "purchase"
	OpRefund   = "refund"
	OpPayout   = "payout"
	OpLogin    = "login"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
