package detkernel

// try is the kernel's try-idiom propagation primitive (spec §7, §9):
// every public operation's fallible result flows through it. It
// returns value and err unchanged, and as a side effect records a
// non-OK status into the per-task error ledger under operation, so the
// ledger spec §7 describes is actually populated by real usage rather
// than only by its own tests.
func try[T any](k *Kernel, operation string, value T, err error) (T, error) {
	if err != nil {
		k.ledger.Record(StatusOf(err), operation)
	}
	return value, err
}

// tryErr is try for operations with no result value beyond error.
func tryErr(k *Kernel, operation string, err error) error {
	if err != nil {
		k.ledger.Record(StatusOf(err), operation)
	}
	return err
}
