package clients

const (
	// -----------------------------
	// WALLET / CONNECTION
	// -----------------------------
	ErrWalletNotConnected = "wallet_not_connected"
	ErrProviderMissing    = "provider_missing"

	// -----------------------------
	// EVM
	// -----------------------------
	ErrEVMChainMismatch   = "evm_chain_mismatch"
	ErrEVMChainUnknown    = "evm_chain_unknown_to_wallet"
	ErrEVMSendFailed      = "evm_send_failed"
	ErrEVMCalldataEncode  = "evm_calldata_encode_failed"
	ErrEVMInvalidTreasury = "evm_invalid_treasury_address"

	// -----------------------------
	// SOLANA
	// -----------------------------
	ErrSolanaRPCMissing       = "solana_rpc_unavailable"
	ErrSolanaATADerivation    = "solana_ata_derivation_failed"
	ErrSolanaBlockhashFetch   = "solana_blockhash_fetch_failed"
	ErrSolanaSignFailed       = "solana_sign_failed"
	ErrSolanaBroadcastFailed  = "solana_broadcast_failed"
	ErrSolanaConfirmTimedOut  = "solana_confirmation_timed_out"
	ErrSolanaInvalidSignedTx  = "solana_invalid_signed_tx"
	ErrSolanaInvalidAddresses = "solana_invalid_addresses"

	// -----------------------------
	// CARDANO
	// -----------------------------
	ErrCardanoNoUtxos        = "cardano_no_utxos"
	ErrCardanoInsufficient   = "cardano_insufficient_funds"
	ErrCardanoAssemblyFailed = "cardano_manual_assembly_failed"
	ErrCardanoSubmitFailed   = "cardano_submit_failed"
)
