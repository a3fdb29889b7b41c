package dsc

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T, ref *sam.Reference, pos int, seq string, mdTag string, reverse bool) *sam.Record {
	t.Helper()
	mdAux, err := sam.NewAux(sam.NewTag("MD"), mdTag)
	require.NoError(t, err)

	qual := make([]byte, len(seq))
	for i := range qual {
		qual[i] = 30
	}
	rec, err := sam.NewRecord("readA", ref, nil, pos, -1, 0, 60,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))},
		[]byte(seq), qual, []sam.Aux{mdAux})
	require.NoError(t, err)
	if reverse {
		rec.Flags |= sam.Reverse
	}
	return rec
}

func TestParseRead_MismatchRecorded(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	rec := newTestRecord(t, ref, 100, "AGGT", "1C2", false)

	cache := NewReferenceCache()
	fid, orient, rr, err := ParseRead(rec, cache)
	require.NoError(t, err)

	require.Equal(t, FamilyId("readA"), fid)
	require.Equal(t, OrientFwd, orient)
	require.Equal(t, 100, rr.Start)
	// rec.End() reports the pysam-style half-open/exclusive end (Pos +
	// reference-consuming CIGAR length); it is carried through unchanged and
	// treated as inclusive downstream, per the off-by-one retained from the
	// source protocol.
	require.Equal(t, 104, rr.End)
	require.Equal(t, map[int]Base{101: BaseG}, rr.Variants)

	require.Equal(t, BaseA, cache.Get("chr1", 100))
	require.Equal(t, BaseC, cache.Get("chr1", 101))
	require.Equal(t, BaseG, cache.Get("chr1", 102))
	require.Equal(t, BaseT, cache.Get("chr1", 103))
}

func TestParseRead_ReverseOrientation(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	rec := newTestRecord(t, ref, 100, "ACGT", "4", true)
	cache := NewReferenceCache()
	_, orient, rr, err := ParseRead(rec, cache)
	require.NoError(t, err)
	require.Equal(t, OrientRev, orient)
	require.Empty(t, rr.Variants)
}

func TestParseRead_PerfectMatchNoVariants(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	rec := newTestRecord(t, ref, 100, "ACGT", "4", false)
	cache := NewReferenceCache()
	_, _, rr, err := ParseRead(rec, cache)
	require.NoError(t, err)
	require.Empty(t, rr.Variants)
}

func TestParseRead_IndelsSkipped(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	mdAux, err := sam.NewAux(sam.NewTag("MD"), "2^CC2")
	require.NoError(t, err)
	qual := make([]byte, 6)
	for i := range qual {
		qual[i] = 30
	}
	// 2M 2I 2D 2M: first 2 query bases align, then 2 inserted bases (no
	// reference consumption), then a 2-base deletion, then 2 more aligned
	// bases. query_sequence is 6 bases (2 aligned + 2 inserted + 2 aligned).
	cigar := []sam.CigarOp{
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarInsertion, 2),
		sam.NewCigarOp(sam.CigarDeletion, 2),
		sam.NewCigarOp(sam.CigarMatch, 2),
	}
	rec, err := sam.NewRecord("readB", ref, nil, 100, -1, 0, 60, cigar, []byte("ACTTGT"), qual, []sam.Aux{mdAux})
	require.NoError(t, err)

	cache := NewReferenceCache()
	_, _, rr, err := ParseRead(rec, cache)
	require.NoError(t, err)
	// No variants: both aligned blocks match the reference per the MD tag.
	require.Empty(t, rr.Variants)
	// Reference is known at the aligned positions but not within the
	// deleted span (the deletion's bases are never written to cache since
	// cache.Set is only called for M/=/X consumed positions).
	require.Equal(t, BaseA, cache.Get("chr1", 100))
	require.Equal(t, BaseC, cache.Get("chr1", 101))
	require.Equal(t, BaseN, cache.Get("chr1", 102))
	require.Equal(t, BaseN, cache.Get("chr1", 103))
	require.Equal(t, BaseG, cache.Get("chr1", 104))
	require.Equal(t, BaseT, cache.Get("chr1", 105))
}

func TestParseRead_MissingMDTagIsError(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	qual := make([]byte, 4)
	rec, err := sam.NewRecord("readC", ref, nil, 100, -1, 0, 60,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)}, []byte("ACGT"), qual, nil)
	require.NoError(t, err)

	cache := NewReferenceCache()
	_, _, _, err = ParseRead(rec, cache)
	require.Error(t, err)
}
