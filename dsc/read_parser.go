package dsc

import (
	"fmt"
	"strconv"

	"github.com/biogo/hts/sam"
)

// ParseRead translates one aligned *sam.Record into a FamilyId, Orientation,
// and ReadRecord, recording the reference base at every position the record
// aligns to into cache as a side effect.
//
// biogo/hts/sam does not expose pysam's get_aligned_pairs()/
// get_reference_sequence() convenience methods, so the (query pos, ref pos,
// query base, ref base) walk is reconstructed here from the record's CIGAR
// and MD tag, the same information pysam itself derives those methods from.
func ParseRead(rec *sam.Record, cache *ReferenceCache) (FamilyId, Orientation, ReadRecord, error) {
	orient := OrientFwd
	if rec.Flags&sam.Reverse != 0 {
		orient = OrientRev
	}

	md, ok := mdTagOf(rec)
	if !ok {
		return "", orient, ReadRecord{}, fmt.Errorf("dsc: record %s has no MD tag", rec.Name)
	}
	alignedOps, err := parseMD(md)
	if err != nil {
		return "", orient, ReadRecord{}, fmt.Errorf("dsc: record %s: %v", rec.Name, err)
	}

	contig := ""
	if rec.Ref != nil {
		contig = rec.Ref.Name()
	}
	seq := rec.Seq.Expand()

	rr := ReadRecord{
		Contig:   contig,
		Start:    rec.Pos,
		End:      rec.End(),
		Variants: map[int]Base{},
	}

	qpos := 0
	rpos := rec.Pos
	ai := 0
	for _, co := range rec.Cigar {
		n := co.Len()
		con := co.Type().Consumes()
		if con.Query > 0 && con.Reference > 0 {
			// M, =, X: walk n aligned positions, consuming both the query
			// and the pre-expanded per-position MD entries.
			for i := 0; i < n; i++ {
				qbase := seq[qpos+i]
				var rbase byte
				if ai < len(alignedOps) && alignedOps[ai].mismatch {
					rbase = alignedOps[ai].base
				} else {
					rbase = qbase
				}
				ai++

				pos := rpos + i
				cache.Set(contig, pos, rbase)

				qb := normalizeBase(qbase)
				rb := normalizeBase(rbase)
				if qb.IsCalled() && rb.IsCalled() && qb != rb {
					rr.Variants[pos] = qb
				}
			}
			qpos += n
			rpos += n
		} else if con.Query > 0 {
			// Insertion or soft clip: query only, no reference bookkeeping.
			qpos += n
		} else if con.Reference > 0 {
			// Deletion or reference skip: reference only, no variant calls.
			rpos += n
		}
		// Hard clip and padding consume neither.
	}

	return FamilyId(rec.Name), orient, rr, nil
}

// mdTagOf returns the MD tag's string value for rec, if present.
func mdTagOf(rec *sam.Record) (string, bool) {
	aux, ok := rec.Tag([]byte("MD"))
	if !ok {
		return "", false
	}
	v := aux.Value()
	s, ok := v.(string)
	return s, ok
}

// alignedOp describes one aligned (CIGAR M/=/X) reference position as
// derived from an MD tag: either a match (the reference base equals the
// query base) or a mismatch carrying the reference's actual base.
type alignedOp struct {
	mismatch bool
	base     byte
}

// parseMD expands an MD tag into one alignedOp per aligned reference
// position, in alignment order. Deleted reference bases (the ^XXX runs)
// correspond to CIGAR D operations, which are not part of the M/=/X walk,
// so they contribute no entries here.
func parseMD(md string) ([]alignedOp, error) {
	var ops []alignedOp
	i := 0
	for i < len(md) {
		c := md[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			for j < len(md) && md[j] >= '0' && md[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(md[i:j])
			if err != nil {
				return nil, fmt.Errorf("invalid MD tag %q: %v", md, err)
			}
			for k := 0; k < n; k++ {
				ops = append(ops, alignedOp{mismatch: false})
			}
			i = j
		case c == '^':
			j := i + 1
			for j < len(md) && isMDBase(md[j]) {
				j++
			}
			i = j
		case isMDBase(c):
			ops = append(ops, alignedOp{mismatch: true, base: c})
			i++
		default:
			return nil, fmt.Errorf("invalid MD tag %q at offset %d", md, i)
		}
	}
	return ops, nil
}

func isMDBase(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
