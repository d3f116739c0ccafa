// Package storage manages the output directory of a download run.
//
// The storage package handles:
//   - Creating the output directory
//   - Purging partial downloads left behind by an earlier run
//   - Streaming files to disk through a temporary file and an atomic rename
//   - Detecting files that already exist
//
// Partial files are named <name>.tmp next to their final path, so an
// interrupted run never leaves a truncated file under a final name.
//
// Usage:
//
//	manager, err := storage.NewManager("images")
//	if err != nil {
//	    return err
//	}
//	manager.PurgeTemp()
//
//	if !manager.Exists("cat.png") {
//	    path, err := manager.Save(body, "cat.png", 32*1024)
//	    ...
//	}
package storage
