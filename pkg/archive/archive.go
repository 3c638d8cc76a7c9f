package archive

import "fmt"

// A run archive is a single file holding a frozen copy of a store's live
// records:
// - An uncompressed header:
// 	- Magic "MRA1" (4 bytes)
// 	- The format version (fixed u32)
// - One LZ4 stream of entries, each framed so readers can decode it from
//   an in-memory cursor:
// 	- The entry length (fixed u32)
// 	- The entry body:
// 		- ID length (compact varint)
// 		- ID bytes
// 		- Payload length (compact varint)
// 		- Payload bytes
//
// Entries are written in ID order, one per live run; tombstoned runs are
// absent entirely rather than carried as deletions.

var ErrBadMagic = fmt.Errorf("not a run archive")
var ErrUnsupportedFormatVersion = fmt.Errorf("unsupported archive format version")
var ErrCorruptEntry = fmt.Errorf("corrupt archive entry")

const FormatVersion uint32 = 1

// Magic identifies a run archive file.
var Magic = [4]byte{'M', 'R', 'A', '1'}

// maxEntrySize caps a single entry's decoded size, guarding allocation
// against corrupt length fields.
const maxEntrySize = 1 << 30

// Entry is one archived run.
type Entry struct {
	ID      string
	Payload []byte
}
