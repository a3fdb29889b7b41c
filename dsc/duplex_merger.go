package dsc

// MergeDuplex combines the positive- and negative-strand consensus of one
// family into a DuplexConsensus, classifying every overlapping position as
// a match, a confirmed variant, an adduct, or excluded (not enough strand
// coverage). counters accumulates the specimen-wide per-read-position
// tallies as a side effect.
//
// The classification follows this table for every refpos in the trimmed
// overlap, where P is the positive-strand base, N is the negative-strand
// base, and R is the reference base:
//
//	P called   N called   R called   P==R   N==R   outcome
//	no         -          -          -      -      cons=N, excluded
//	yes        yes        no         -      -      cons=IUPAC(P,N), counted, no call
//	yes        yes        yes        yes    yes    match
//	yes        yes        yes        no     no,P==N  variant{P,R}
//	yes        yes        yes        no     no,P!=N  variant{P,R} AND adduct(neg){complement(N),complement(R)}
//	yes        yes        yes        no     yes    adduct(pos){P,R}
//	yes        yes        yes        yes    no     adduct(neg){complement(N),complement(R)}
//
// The composite total_variants_and_adducts counter is incremented exactly
// once for the dual-mismatch row even though it produces both a variant and
// an adduct; this matches the source protocol's behavior and must not be
// "fixed" to count two events (see DESIGN.md).
func MergeDuplex(pos, neg StrandConsensus, cache *ReferenceCache, counters *BasePositionCounters) DuplexConsensus {
	start := pos.Start
	if neg.Start > start {
		start = neg.Start
	}
	end := pos.End
	if neg.End < end {
		end = neg.End
	}

	dc := DuplexConsensus{
		Contig:   pos.Contig,
		Start:    start,
		End:      end,
		Variants: map[int]DuplexVariant{},
		Adducts:  map[int]Adduct{},
	}
	if end < start {
		return dc
	}

	posCons := trimCons(pos.Cons, pos.Start, start, end)
	negCons := trimCons(neg.Cons, neg.Start, start, end)

	cons := make([]Base, 0, end-start+1)
	for i, refpos := 0, start; refpos <= end; i, refpos = i+1, refpos+1 {
		p := posCons[i]
		n := negCons[i]

		if !p.IsCalled() || !n.IsCalled() {
			cons = append(cons, BaseN)
			continue
		}

		cons = append(cons, iupac(p, n))

		readpos := refpos - start
		if end-refpos < readpos {
			readpos = end - refpos
		}
		readpos++

		dc.NBases++
		counters.NReads[readpos]++

		r := cache.Get(dc.Contig, refpos)
		if !r.IsCalled() {
			continue
		}

		pMismatch := p != r
		nMismatch := n != r
		switch {
		case pMismatch && nMismatch:
			dc.Variants[refpos] = DuplexVariant{Var: p, Ref: r}
			counters.Variants[readpos]++
			if p != n {
				dc.Adducts[refpos] = Adduct{Strand: StrandNeg, Var: complementBase(n), Ref: complementBase(r)}
				counters.Adducts[readpos]++
			}
			dc.TotalVariants++
			dc.TotalVariantsAndAdducts++
		case pMismatch:
			dc.Adducts[refpos] = Adduct{Strand: StrandPos, Var: p, Ref: r}
			counters.Adducts[readpos]++
			dc.TotalVariantsAndAdducts++
		case nMismatch:
			dc.Adducts[refpos] = Adduct{Strand: StrandNeg, Var: complementBase(n), Ref: complementBase(r)}
			counters.Adducts[readpos]++
			dc.TotalVariantsAndAdducts++
		}
	}
	dc.Cons = cons
	return dc
}

// trimCons slices a strand consensus buffer, which spans [origStart, ...],
// down to [newStart, newEnd].
func trimCons(cons []Base, origStart, newStart, newEnd int) []Base {
	lo := newStart - origStart
	hi := lo + (newEnd - newStart) + 1
	return cons[lo:hi]
}
