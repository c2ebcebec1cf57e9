/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Video libraries commonly live on NFS shares. When a file is replaced server-side
while a client holds a handle, the next stat or open fails with ESTALE even though
the path is valid. StatWithRetry and OpenWithRetry retry those calls with
exponential backoff and return every other error immediately.

Both functions take an afero.Fs so callers can run against the real disk
(afero.NewOsFs) in production and an in-memory filesystem in tests:

	info, err := filesystem.StatWithRetry(fsys, path, filesystem.DefaultRetryConfig())
	f, err := filesystem.OpenWithRetry(fsys, path, filesystem.DefaultRetryConfig())

Retry metrics are reported through the Observer installed with SetObserver.
*/
package filesystem
