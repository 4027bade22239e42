// Package csync provides a mutex-guarded generic map.
//
// It backs the bookkeeping that several goroutines touch at once, such as the
// set of module saves currently in flight:
//
//	inflight := csync.NewMap[configstore.Module, string]()
//	if !inflight.SetIfAbsent(module, requestID) {
//		return ErrSaveInProgress
//	}
//	defer inflight.CompareAndDelete(module, requestID)
package csync
