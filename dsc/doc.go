/*Package dsc reconciles paired single-strand consensus (SSC) reads from
duplex-sequenced DNA into double-strand consensus (DSC) calls, and classifies
every mismatch with the reference as a true variant or a DNA adduct.

Background:

Duplex sequencing tags each original double-stranded DNA molecule so that
reads descending from the same molecule can be grouped into a "family",
identified by a shared query name. Within a family, reads from the positive
and negative physical strands are collapsed upstream (outside this package)
into one forward and one reverse single-strand consensus (SSC) read per
strand, four reads per family in total.

This package performs the second half of the protocol: merging the fwd/rev
pair of each strand into a per-strand consensus, then merging the positive
and negative strand consensuses into a double-strand consensus (DSC). A
mismatch with the reference confirmed independently on both physical strands
is a true biological variant. A mismatch seen on only one strand is
attributed to chemical damage (an adduct) rather than biology, because an
adduct on the template strand is copied by the polymerase but is not present
on the complementary strand.

Pipeline:

  ReadParser converts one aligned record into a ReadRecord, recording any
  mismatching positions against a ReferenceCache it populates as a side
  effect.

  StrandMerger combines the fwd and rev ReadRecords of one strand of one
  family into a StrandConsensus spanning the fwd read's start to the rev
  read's end.

  DuplexMerger combines the pos and neg StrandConsensuses of one family into
  a DuplexConsensus, running the classification table described in
  duplex_merger.go and accumulating global per-read-position counters.

  ThresholdEmitter walks every distinct mutation-load value observed across
  families (bounded by a configured cap) and writes one full output bundle
  per threshold: a GTF of adduct positions, a gzipped family list, a gzipped
  JSON dump of the kept DSC records, a summary JSON, several CSV rollups, and
  three synthesized BAM files (DSC, SSC positive, SSC negative).

A single malformed read pair must never abort a whole specimen: per-family
anomalies (missing mate, cross-contig mates, non-inward orientation) are
logged and the offending family-strand is dropped, while processing of the
rest of the specimen continues.
*/
package dsc
