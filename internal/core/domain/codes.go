package domain

// catalogue maps wire codes to their sentinels so codes received over
// HTTP can be turned back into errors that match under errors.Is.
var catalogue = map[string]*DomainError{}

func define(kind Kind, code, message string) *DomainError {
	if _, dup := catalogue[code]; dup {
		panic("domain: duplicate error code " + code)
	}
	e := &DomainError{Kind: kind, Code: code, Message: message}
	catalogue[code] = e
	return e
}

// Lookup returns the sentinel registered for code.
func Lookup(code string) (*DomainError, bool) {
	e, ok := catalogue[code]
	return e, ok
}

// Configuration.
var (
	ErrUnknownWorkbook     = define(KindConfiguration, "SS-CONF-4040", "unknown workbook alias")
	ErrInvalidCredential   = define(KindConfiguration, "SS-CONF-5001", "invalid service account credentials")
	ErrEmptyCredentialPool = define(KindConfiguration, "SS-CONF-5002", "credential pool is empty")
	ErrInvalidConfig       = define(KindConfiguration, "SS-CONF-5003", "invalid configuration")
)

// Request validation.
var (
	ErrInvalidArgument = define(KindValidation, "SS-ARG-4001", "invalid argument")
	ErrMissingArgument = define(KindValidation, "SS-ARG-4002", "missing required argument")
	ErrInvalidColumn   = define(KindValidation, "SS-ARG-4003", "malformed column reference")
	ErrEmptyBatch      = define(KindValidation, "SS-ARG-4004", "empty batch")
)

// Remote store. A missing sheet and a sheet with an unusable boundary row
// are both reported by the store, not by request validation.
var (
	ErrRemoteStore         = define(KindRemoteStore, "SS-STORE-5020", "remote store call failed")
	ErrMalformedRemoteData = define(KindRemoteStore, "SS-STORE-5021", "malformed remote store data")
	ErrSheetNotFound       = define(KindRemoteStore, "SS-STORE-4040", "sheet not found")
)

// ErrSyncStateMismatch means the client claims a last-modified newer than
// anything the server has.
var ErrSyncStateMismatch = define(KindStateMismatch, "SS-SYNC-4090", "client sync state is ahead of server")

// Transport and internal.
var (
	ErrInternalServer = define(KindSystem, "SS-SYS-5000", "internal server error")
	ErrBadRequest     = define(KindSystem, "SS-SYS-4000", "bad request")
	ErrUnauthorized   = define(KindSystem, "SS-SYS-4010", "unauthorized")
	ErrRateLimited    = define(KindSystem, "SS-SYS-4290", "too many requests")
)
