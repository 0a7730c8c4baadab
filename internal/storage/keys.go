package storage

// Logical keys of the documents the ledger persists.
const (
	KeyTransactions       = "transactions"
	KeyCreditCards        = "creditCards"
	KeyInvestments        = "investments"
	KeyYieldHistory       = "yield_history"
	KeyYieldWatermark     = "yield_last_process_date"
	KeyDefaultYieldRate   = "default_yield_rate"
	KeyOriginalCardLimits = "original_card_limits"
	KeyPendingTransfer    = "pending_balance_transfer"
	KeyTransferHistory    = "balance_transfer_history"
	KeyCoverageRecords    = "investment_coverage_records"
	KeySettings           = "app_settings"
	KeySchemaVersion      = "schema_version"
)

// BackupKeys are the keys replaced wholesale by a backup import.
var BackupKeys = []string{
	KeyTransactions,
	KeyCreditCards,
	KeySettings,
	KeyInvestments,
	KeyYieldHistory,
	KeyDefaultYieldRate,
	KeyOriginalCardLimits,
}
