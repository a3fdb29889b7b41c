package dsc

// Base is a single nucleotide call, always one of the four upper-case ATCG
// letters or N. Lowercase (soft-masked) letters are upper-cased first; any
// character that is then still outside {A,T,C,G} (ambiguity codes, gap
// placeholders) is normalized to N and excludes the position from
// classification.
type Base byte

// The four canonical bases plus the "unknown or excluded" placeholder.
const (
	BaseA Base = 'A'
	BaseT Base = 'T'
	BaseC Base = 'C'
	BaseG Base = 'G'
	BaseN Base = 'N'
)

// IsCalled reports whether b is one of A, T, C, G.
func (b Base) IsCalled() bool {
	switch b {
	case BaseA, BaseT, BaseC, BaseG:
		return true
	}
	return false
}

// normalizeBase upper-cases ascii and maps anything that isn't A/T/C/G to N.
func normalizeBase(c byte) Base {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	switch Base(c) {
	case BaseA, BaseT, BaseC, BaseG:
		return Base(c)
	}
	return BaseN
}

// complementBase returns the Watson-Crick complement of b. Only A/T and C/G
// are defined; BaseN is returned for anything else, which should
// never occur since complementBase is only ever called on bases that have
// already passed IsCalled.
func complementBase(b Base) Base {
	switch b {
	case BaseA:
		return BaseT
	case BaseT:
		return BaseA
	case BaseC:
		return BaseG
	case BaseG:
		return BaseC
	}
	return BaseN
}

// iupacTable is the standard two-base IUPAC ambiguity code lookup,
// https://www.bioinformatics.org/sms/iupac.html, indexed [base1][base2].
var iupacTable = map[Base]map[Base]Base{
	BaseA: {BaseA: 'A', BaseT: 'W', BaseC: 'M', BaseG: 'R'},
	BaseT: {BaseA: 'W', BaseT: 'T', BaseC: 'Y', BaseG: 'K'},
	BaseC: {BaseA: 'M', BaseT: 'Y', BaseC: 'C', BaseG: 'S'},
	BaseG: {BaseA: 'R', BaseT: 'K', BaseC: 'S', BaseG: 'G'},
}

// iupac returns the IUPAC ambiguity code representing b1 and b2 together.
// Any pair involving a base outside A/T/C/G resolves to N.
func iupac(b1, b2 Base) Base {
	if row, ok := iupacTable[b1]; ok {
		if code, ok := row[b2]; ok {
			return code
		}
	}
	return BaseN
}

// FamilyId identifies one original double-stranded DNA molecule. It is
// carried verbatim from the aligned read's query name.
type FamilyId string

// Strand is the physical DNA strand a read descends from.
type Strand int

const (
	StrandPos Strand = iota
	StrandNeg
)

func (s Strand) String() string {
	if s == StrandPos {
		return "pos"
	}
	return "neg"
}

// Orientation distinguishes the forward and reverse read of a single-strand
// consensus read pair.
type Orientation int

const (
	OrientFwd Orientation = iota
	OrientRev
)

// Variant is a single mismatched position recorded against the reference,
// as seen from one read.
type Variant struct {
	Var Base
}

// ReadRecord is the per-read view produced by ReadParser: the aligned span
// of one SSC read and the sparse set of positions where it disagrees with
// the reference.
type ReadRecord struct {
	Contig   string
	Start    int // leftmost 0-based reference position, inclusive
	End      int // one past the rightmost aligned reference position (rec.End()), treated as inclusive downstream
	Variants map[int]Base
}

// StrandVariant is one mismatch recorded in a StrandConsensus: the merged
// read-pair's variant base, the reference base at that position, and the
// distance from the 5' end of whichever read covered the position.
type StrandVariant struct {
	ReadPos int
	Var     Base
	Ref     Base
}

// StrandConsensus is the result of merging the fwd and rev ReadRecords of
// one strand of one family.
type StrandConsensus struct {
	Contig   string
	Start    int
	End      int // inclusive
	Cons     []Base
	Variants map[int]StrandVariant
}

// Adduct is a single-strand-only mismatch, attributed to chemical damage
// rather than biology. Var and Ref are always reported in positive-strand
// coordinates: an adduct discovered on the negative strand has both fields
// complemented before being recorded here.
type Adduct struct {
	Strand Strand
	Var    Base
	Ref    Base
}

// DuplexVariant is a mismatch confirmed on both physical strands.
type DuplexVariant struct {
	Var Base
	Ref Base
}

// DuplexConsensus is the double-strand consensus call for one family: the
// merged sequence over the overlap of the pos and neg strand spans, plus
// every classified mismatch and the running totals used for threshold
// filtering.
type DuplexConsensus struct {
	Contig                  string
	Start                   int
	End                     int // inclusive
	Cons                    []Base
	NBases                  int
	Variants                map[int]DuplexVariant
	Adducts                 map[int]Adduct
	TotalVariants           int
	TotalVariantsAndAdducts int
}

// BasePositionCounters accumulates, across every family in a specimen, the
// number of bases/variants/adducts seen at each distance from the nearer
// end of a DSC span (1-based).
type BasePositionCounters struct {
	NReads   map[int]int
	Variants map[int]int
	Adducts  map[int]int
}

// NewBasePositionCounters returns an empty, ready-to-use counter set.
func NewBasePositionCounters() *BasePositionCounters {
	return &BasePositionCounters{
		NReads:   map[int]int{},
		Variants: map[int]int{},
		Adducts:  map[int]int{},
	}
}
