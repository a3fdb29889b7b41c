package dsc

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// perOrientation holds the two SSC reads (forward and reverse) seen for one
// (family, strand) pair. A BAM with more than one read for a given
// orientation silently clobbers the earlier one, matching the source
// protocol's ordering guarantee (SPEC_FULL.md §5).
type perOrientation struct {
	fwd, rev *ReadRecord
}

// Run executes the complete ParseSSC pipeline: it streams both strand BAMs,
// merges forward/reverse reads per strand, merges the two strands per
// family, and emits one output bundle per filter threshold.
func Run(ctx context.Context, opts Opts) error {
	cache := NewReferenceCache()

	posReads, header, err := readStrandBAM(ctx, opts.PosBAMPath, cache)
	if err != nil {
		return err
	}
	negReads, _, err := readStrandBAM(ctx, opts.NegBAMPath, cache)
	if err != nil {
		return err
	}

	sscPos := map[FamilyId]StrandConsensus{}
	sscNeg := map[FamilyId]StrandConsensus{}

	for fid, po := range posReads {
		if sc, ok := MergeStrand(fid, StrandPos, po.fwd, po.rev, cache); ok {
			sscPos[fid] = sc
		}
	}
	for fid, po := range negReads {
		if sc, ok := MergeStrand(fid, StrandNeg, po.fwd, po.rev, cache); ok {
			sscNeg[fid] = sc
		}
	}

	counters := NewBasePositionCounters()
	dscMap := map[FamilyId]DuplexConsensus{}
	for fid, pos := range sscPos {
		neg, ok := sscNeg[fid]
		if !ok {
			log.Printf("dsc: family %s: no negative-strand consensus, dropping", fid)
			continue
		}
		dscMap[fid] = MergeDuplex(pos, neg, cache, counters)
	}
	for fid := range sscNeg {
		if _, ok := sscPos[fid]; !ok {
			log.Printf("dsc: family %s: no positive-strand consensus, dropping", fid)
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return errors.E(err, "couldn't create output directory", opts.OutDir)
	}

	return EmitThresholds(ctx, opts, dscMap, sscPos, sscNeg, counters, header)
}

// readStrandBAM streams every record of one strand's SSC BAM, building the
// (family, orientation) -> ReadRecord table and populating cache as a side
// effect. It returns the BAM's header, needed later to synthesize output
// records against the same reference set.
func readStrandBAM(ctx context.Context, path string, cache *ReferenceCache) (map[FamilyId]*perOrientation, *sam.Header, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "couldn't open input BAM", path)
	}
	defer f.Close(ctx) // nolint: errcheck

	r, err := bam.NewReader(f.Reader(ctx), runtime.NumCPU())
	if err != nil {
		return nil, nil, errors.E(err, "couldn't read BAM header", path)
	}
	defer r.Close()

	reads := map[FamilyId]*perOrientation{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.E(err, "error reading BAM", path)
		}

		fid, orient, rr, err := ParseRead(rec, cache)
		if err != nil {
			log.Printf("dsc: skipping unparseable read in %s: %v", path, err)
			continue
		}

		po, ok := reads[fid]
		if !ok {
			po = &perOrientation{}
			reads[fid] = po
		}
		rrCopy := rr
		if orient == OrientFwd {
			po.fwd = &rrCopy
		} else {
			po.rev = &rrCopy
		}
	}

	return reads, r.Header(), nil
}
