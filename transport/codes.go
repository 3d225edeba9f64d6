package transport

// Ledger engine result codes the SDK inspects by name. The ledger defines many
// more; everything except ResultSuccess is surfaced to callers verbatim inside
// a SubmissionError.
const (
	// ResultSuccess is the only code meaning the transaction was applied.
	ResultSuccess = "tesSUCCESS"

	// ResultNoPermission is returned when a payment or deletion is refused
	// for lack of authorization. Negative-path callers treat it as an
	// expected outcome rather than a fault.
	ResultNoPermission = "tecNO_PERMISSION"

	// ResultEntryNotFound is returned when a referenced ledger entry does
	// not exist, e.g. accepting a credential that was never issued.
	ResultEntryNotFound = "tecNO_ENTRY"

	// ResultExpired is returned when a cited credential is past its
	// expiration at apply time.
	ResultExpired = "tecEXPIRED"

	// ResultDuplicate is returned when an equivalent credential entry
	// already exists.
	ResultDuplicate = "tecDUPLICATE"
)
