package maple

import "fmt"

// State codes. The four concrete nucleotides occupy 0..3; everything at
// or above stateAmbiguousBase is a tag rather than a literal base.
const (
	StateA = byte(0)
	StateC = byte(1)
	StateG = byte(2)
	StateT = byte(3)

	// StateR marks a span identical to the reference at that position.
	StateR = byte(4)
	// StateN marks fully ambiguous / missing data.
	StateN = byte(5)
	// StateDEL marks a gap, treated like StateN during likelihood.
	StateDEL = byte(6)
	// StateO marks an explicit probability vector over concrete states.
	StateO = byte(7)

	stateAmbiguousBase = StateR
)

// NumConcreteStates is the size of the DNA alphabet this package encodes.
const NumConcreteStates = 4

var concreteLetters = [NumConcreteStates]byte{'A', 'C', 'G', 'T'}

// ConcreteStateChar returns the letter for a concrete state code.
func ConcreteStateChar(state byte) (byte, error) {
	if int(state) >= NumConcreteStates {
		return 0, fmt.Errorf(InvalidIntParameterError, "concrete state", int(state), "state >= 4")
	}
	return concreteLetters[state], nil
}

// iupacBitsets maps an IUPAC ambiguity letter to the bitset of concrete
// states (bit i set means concreteLetters[i] is possible) it represents.
// Bit order follows concreteLetters: A=1, C=2, G=4, T=8.
var iupacBitsets = map[byte]uint8{
	'A': 1, 'C': 2, 'G': 4, 'T': 8,
	'R': 1 | 4, // A or G
	'Y': 2 | 8, // C or T
	'S': 2 | 4, // C or G
	'W': 1 | 8, // A or T
	'K': 4 | 8, // G or T
	'M': 1 | 2, // A or C
	'B': 2 | 4 | 8,
	'D': 1 | 4 | 8,
	'H': 1 | 2 | 8,
	'V': 1 | 2 | 4,
	'N': 1 | 2 | 4 | 8,
}

// IUPACBitset returns the bitset of concrete states for an IUPAC letter.
// ok is false for an unrecognized byte.
func IUPACBitset(ch byte) (bits uint8, ok bool) {
	bits, ok = iupacBitsets[ch]
	return bits, ok
}

// BitsetToVector expands a bitset into a uniform probability vector over
// the concrete states it admits; all-zero input yields a fully ambiguous
// (uniform) vector, matching StateN semantics.
func BitsetToVector(bits uint8) []float64 {
	v := make([]float64, NumConcreteStates)
	n := 0
	for i := 0; i < NumConcreteStates; i++ {
		if bits&(1<<uint(i)) != 0 {
			n++
		}
	}
	if n == 0 {
		n = NumConcreteStates
		bits = 1 | 2 | 4 | 8
	}
	p := 1.0 / float64(n)
	for i := 0; i < NumConcreteStates; i++ {
		if bits&(1<<uint(i)) != 0 {
			v[i] = p
		}
	}
	return v
}

// Reference is the immutable consensus genome every taxon is stored as
// differences from. Positions are 0-based, states are concrete (0..3).
type Reference []byte

// Len returns the number of positions in the reference.
func (r Reference) Len() int {
	return len(r)
}

// StateAt returns the concrete state at a 0-based position.
func (r Reference) StateAt(pos int) byte {
	return r[pos]
}

// NewReferenceFromLetters encodes an ACGT string into a Reference,
// rejecting anything outside the four concrete letters.
func NewReferenceFromLetters(s string) (Reference, error) {
	ref := make(Reference, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'a':
			ref[i] = StateA
		case 'C', 'c':
			ref[i] = StateC
		case 'G', 'g':
			ref[i] = StateG
		case 'T', 't', 'U', 'u':
			ref[i] = StateT
		default:
			return nil, fmt.Errorf(InvalidStringParameterError, "reference character", string(s[i]), "not one of ACGT")
		}
	}
	return ref, nil
}
