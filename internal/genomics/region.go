// Package genomics contains definitions related to genomic data.
package genomics

import "fmt"

// Region defines a region of genomic interest.
type Region struct {
	// ReferenceID identifies the reference sequence the region lies on.  A
	// negative value means the region is not bound to any reference.
	ReferenceID int32
	// Start and End are the 1-based inclusive bounds of the region in base
	// pairs.  An End of zero is treated as though it extended to the last
	// position on the reference.
	Start, End int
}

func (region Region) String() string {
	return fmt.Sprintf("[region:%d, start:%d, end:%d]", region.ReferenceID, region.Start, region.End)
}
