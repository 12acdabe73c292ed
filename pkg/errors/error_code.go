package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInsufficientData     ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104

	// Ledger errors (200-299)
	ErrCodeInsufficientFunds    ErrorCode = 200
	ErrCodeNoPosition           ErrorCode = 201
	ErrCodeInsufficientPosition ErrorCode = 202
	ErrCodeLeverageConflict     ErrorCode = 203

	// Snapshot errors (300-399)
	ErrCodeSnapshotCorrupt ErrorCode = 300
	ErrCodeSnapshotWrite   ErrorCode = 301

	// Market data errors (400-499)
	ErrCodeDataUnavailable       ErrorCode = 400
	ErrCodeMarketDataFetchFailed ErrorCode = 401
	ErrCodeMarketDataParseFailed ErrorCode = 402

	// Report errors (500-599)
	ErrCodeReportExportFailed ErrorCode = 500
)
