package dsc

import (
	"github.com/grailbio/base/log"
)

// MergeStrand combines the forward and reverse ReadRecords of one strand of
// one family into a StrandConsensus, per the merge_fwd_rev_per_strand
// semantics of the source protocol.
//
// Any failed precondition is logged at INFO and (false, zero value) is
// returned; the caller drops this family-strand and continues. This must
// never abort the whole specimen over one malformed pair.
func MergeStrand(familyID FamilyId, strand Strand, fwd, rev *ReadRecord, cache *ReferenceCache) (StrandConsensus, bool) {
	if fwd == nil || rev == nil {
		log.Printf("dsc: family %s strand %s: missing forward or reverse read, dropping", familyID, strand)
		return StrandConsensus{}, false
	}
	if fwd.Contig != rev.Contig {
		log.Printf("dsc: family %s strand %s: forward and reverse reads on different contigs (%s vs %s), dropping",
			familyID, strand, fwd.Contig, rev.Contig)
		return StrandConsensus{}, false
	}
	if fwd.Start >= rev.End {
		log.Printf("dsc: family %s strand %s: reads not oriented inward (fwd.start=%d rev.end=%d), dropping",
			familyID, strand, fwd.Start, rev.End)
		return StrandConsensus{}, false
	}

	sc := StrandConsensus{
		Contig:   fwd.Contig,
		Start:    fwd.Start,
		End:      rev.End,
		Variants: map[int]StrandVariant{},
	}

	// Union the variants from both reads. When both cover the same refpos,
	// the read processed second wins; rev is always processed after fwd so
	// that it overwrites fwd's call, matching the source's dict-insertion
	// ordering exactly.
	for refpos, varBase := range fwd.Variants {
		readpos := (refpos - fwd.Start) + 1
		sc.Variants[refpos] = StrandVariant{
			ReadPos: readpos,
			Var:     varBase,
			Ref:     cache.Get(sc.Contig, refpos),
		}
	}
	for refpos, varBase := range rev.Variants {
		readpos := (rev.End - refpos) + 1
		sc.Variants[refpos] = StrandVariant{
			ReadPos: readpos,
			Var:     varBase,
			Ref:     cache.Get(sc.Contig, refpos),
		}
	}

	// covered is the union of positions spanned by either read; positions
	// outside both reads' spans (but inside [start, end]) are N.
	coveredFwd := func(p int) bool { return p >= fwd.Start && p <= fwd.End }
	coveredRev := func(p int) bool { return p >= rev.Start && p <= rev.End }

	cons := make([]Base, 0, sc.End-sc.Start+1)
	for pos := sc.Start; pos <= sc.End; pos++ {
		if !coveredFwd(pos) && !coveredRev(pos) {
			cons = append(cons, BaseN)
			continue
		}
		if v, ok := sc.Variants[pos]; ok {
			cons = append(cons, v.Var)
			continue
		}
		cons = append(cons, cache.Get(sc.Contig, pos))
	}
	sc.Cons = cons

	return sc, true
}
