package primitives

import "fmt"

// FileID Methods
// =============================================================================

// IsValid checks if the FileID is a valid non-zero identifier.
// A FileID of 0 is typically considered invalid or uninitialized.
func (f FileID) IsValid() bool {
	return f != 0
}

// AsUint64 returns the FileID as a uint64 for serialization or storage.
func (f FileID) AsUint64() uint64 {
	return uint64(f)
}

// String returns a string representation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("FileID(%d)", f)
}

// NewFileIDFromUint64 builds a FileID from a raw uint64 value.
func NewFileIDFromUint64(v uint64) FileID {
	return FileID(v)
}

// TableID Methods
// =============================================================================

// IsValid checks if the TableID is a valid non-zero identifier.
func (t TableID) IsValid() bool {
	return t != 0
}

// AsUint64 returns the TableID as a uint64 for serialization or storage.
func (t TableID) AsUint64() uint64 {
	return uint64(t)
}

// String returns a string representation of the TableID.
func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", t)
}

// ToFileID widens a TableID back to its underlying FileID.
func (t TableID) ToFileID() FileID {
	return FileID(t)
}

// AsIndexID reinterprets a TableID as an IndexID with the same value.
func (t TableID) AsIndexID() IndexID {
	return IndexID(t)
}

// NewTableIDFromUint64 builds a TableID from a raw uint64 value.
func NewTableIDFromUint64(v uint64) TableID {
	return TableID(v)
}

// NewTableIDFromFileID derives a TableID from a file's FileID.
func NewTableIDFromFileID(f FileID) TableID {
	return TableID(f)
}

// IndexID Methods
// =============================================================================

// IsValid checks if the IndexID is a valid non-zero identifier.
func (i IndexID) IsValid() bool {
	return i != 0
}

// AsUint64 returns the IndexID as a uint64 for serialization or storage.
func (i IndexID) AsUint64() uint64 {
	return uint64(i)
}

// String returns a string representation of the IndexID.
func (i IndexID) String() string {
	return fmt.Sprintf("IndexID(%d)", i)
}

// ToFileID widens an IndexID back to its underlying FileID.
func (i IndexID) ToFileID() FileID {
	return FileID(i)
}

// AsTableID reinterprets an IndexID as a TableID with the same value.
func (i IndexID) AsTableID() TableID {
	return TableID(i)
}

// NewIndexIDFromUint64 builds an IndexID from a raw uint64 value.
func NewIndexIDFromUint64(v uint64) IndexID {
	return IndexID(v)
}

// NewIndexIDFromFileID derives an IndexID from a file's FileID.
func NewIndexIDFromFileID(f FileID) IndexID {
	return IndexID(f)
}
