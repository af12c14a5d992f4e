package maple

const (
	// IntKeyNotFoundError is the message for "Integer key not found" errors.
	IntKeyNotFoundError = "key %d not found"

	// IntKeyExists is the message printed when a given key already exists.
	IntKeyExists = "key %d already exists"

	InvalidFloatParameterError  = "invalid %s %f, %s"
	InvalidIntParameterError    = "invalid %s %d, %s"
	InvalidStringParameterError = "invalid %s %s, %s"
)

const (
	UnequalFloatParameterError  = "expected %s %f, instead got %f"
	UnequalIntParameterError    = "expected %s %d, instead got %d"
	UnequalStringParameterError = "expected %s %s, instead got %s"
	UnexpectedErrorWhileError   = "encountered error while %s: %s"
	ExpectedErrorWhileError     = "expected an error while %s, instead got none"
)

// The following are contract-violation messages (spec.md §7,
// "Invariant-violation"): unsorted mutation positions, genome-lists that
// don't cover [0,L), negative branch lengths, and rate matrices whose
// rows fail to sum to zero. These are not recoverable; callers wrap them
// with github.com/pkg/errors and abort rather than attempt repair.
const (
	UnsortedMutationsError     = "mutation list for %q is not sorted or overlaps at position %d"
	RegionCoverageError        = "region list does not cover [0,%d): last end is %d"
	RegionOrderError           = "region list is not strictly increasing in end position at index %d"
	NegativeBranchLengthError  = "branch length %f is negative"
	RowSumNotZeroError         = "rate matrix row %d sums to %f, expected 0"
	MismatchedGenomeLengthError = "genome-list lengths differ: %d vs %d"
	NoPlacementFoundError      = "no informative placement found for %q"
)
