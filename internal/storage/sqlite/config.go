// Package sqlite implements the SQLite backend: creating the database file,
// replacing a table from a schema.Dataset, and reading it back.
package sqlite

import (
	"net/url"
	"strconv"
	"strings"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// Path is the database file, e.g. "data/my_database.db".
	Path string

	// Verify reads every replaced table back after commit and compares its
	// fingerprint with the dataset that was written.
	Verify bool
}

// Open modes used when building DSNs.
const (
	modeReadOnly  = "ro"
	modeReadWrite = "rw"  // file must already exist
	modeCreate    = "rwc" // create when absent
)

// busyTimeoutMS bounds how long a writer waits on another connection's lock.
const busyTimeoutMS = 5000

// DSN builds a URI filename for path. SQLite treats '?' and '#' as URI
// delimiters and '%' as an escape, so those are percent-encoded; everything
// else is passed through so relative paths stay relative.
//
// Writable DSNs take the write lock when a transaction begins
// (_txlock=immediate).
func DSN(path, mode string) string {
	esc := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)

	q := url.Values{}
	q.Set("mode", mode)
	q.Add("_pragma", "busy_timeout("+strconv.Itoa(busyTimeoutMS)+")")
	if mode != modeReadOnly {
		q.Set("_txlock", "immediate")
	}
	return "file:" + esc + "?" + q.Encode()
}
