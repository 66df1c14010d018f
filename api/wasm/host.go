package wasm

// HostModule is the import module name under which host functions are exported.
const HostModule = "host"

// Host functions a runtime module may import.
//
//	log_message(level i32, ptr i32, len i32)
//	progress(fraction f64, proc_ptr i32, proc_len i32, state_ptr i32, state_len i32)
const (
	ImportLogMessage = "log_message"
	ImportProgress   = "progress"
)

// Log levels accepted by log_message.
const (
	LogLevelDebug uint32 = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)
