// Package memory provides mutex-guarded, process-local implementations of the
// user and reading repositories. It backs STORAGE_DRIVER=memory and the
// end-to-end router tests.
package memory
