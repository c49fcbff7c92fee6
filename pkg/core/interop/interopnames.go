package interop

// Names of the syscalls this engine knows. The Register* functions
// install all of them except SystemRuntimeGetNotifications,
// SystemRuntimeCurrentSigners, SystemContractCallNative,
// SystemContractNativeOnPersist and SystemContractNativePostPersist,
// which have no implementation in this package. A syscall's
// wire ID is the first 4 bytes of SHA-256(name) (see pkg/vm/emit.SyscallID);
// these string constants are the single source the engine's table and any
// compiler/assembler front end hash against, so a typo here changes IDs
// for everyone.
const (
	SystemRuntimePlatform           = "System.Runtime.Platform"
	SystemRuntimeGetTrigger         = "System.Runtime.GetTrigger"
	SystemRuntimeGetTime            = "System.Runtime.GetTime"
	SystemRuntimeGetScriptContainer = "System.Runtime.GetScriptContainer"
	SystemRuntimeGetExecutingScriptHash = "System.Runtime.GetExecutingScriptHash"
	SystemRuntimeGetCallingScriptHash   = "System.Runtime.GetCallingScriptHash"
	SystemRuntimeGetEntryScriptHash     = "System.Runtime.GetEntryScriptHash"
	SystemRuntimeCheckWitness        = "System.Runtime.CheckWitness"
	SystemRuntimeGetInvocationCounter = "System.Runtime.GetInvocationCounter"
	SystemRuntimeLog                = "System.Runtime.Log"
	SystemRuntimeNotify              = "System.Runtime.Notify"
	SystemRuntimeGetNotifications    = "System.Runtime.GetNotifications"
	SystemRuntimeGasLeft             = "System.Runtime.GasLeft"
	SystemRuntimeBurnGas             = "System.Runtime.BurnGas"
	SystemRuntimeCurrentSigners      = "System.Runtime.CurrentSigners"

	SystemStorageGetContext     = "System.Storage.GetContext"
	SystemStorageGetReadOnlyContext = "System.Storage.GetReadOnlyContext"
	SystemStorageAsReadOnly     = "System.Storage.AsReadOnly"
	SystemStorageGet            = "System.Storage.Get"
	SystemStoragePut            = "System.Storage.Put"
	SystemStorageDelete         = "System.Storage.Delete"
	SystemStorageFind           = "System.Storage.Find"

	SystemContractCall          = "System.Contract.Call"
	SystemContractCallNative    = "System.Contract.CallNative"
	SystemContractGetCallFlags  = "System.Contract.GetCallFlags"
	SystemContractCreateStandardAccount = "System.Contract.CreateStandardAccount"
	SystemContractCreateMultisigAccount = "System.Contract.CreateMultisigAccount"
	SystemContractNativeOnPersist       = "System.Contract.NativeOnPersist"
	SystemContractNativePostPersist     = "System.Contract.NativePostPersist"

	SystemIteratorNext  = "System.Iterator.Next"
	SystemIteratorValue = "System.Iterator.Value"

	NeoCryptoCheckSig       = "Neo.Crypto.CheckSig"
	NeoCryptoCheckMultisig  = "Neo.Crypto.CheckMultisig"
	NeoCryptoSha256         = "Neo.Crypto.SHA256"
	NeoCryptoRipemd160      = "Neo.Crypto.RIPEMD160"
	NeoCryptoVerifyWithECDsa = "Neo.Crypto.VerifyWithECDsa"
)
