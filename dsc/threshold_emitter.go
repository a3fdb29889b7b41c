package dsc

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

var baseOrder = []Base{BaseA, BaseT, BaseC, BaseG}

// EmitThresholds writes one output bundle per distinct value of the
// configured filter metric observed across dscMap (bounded by
// opts.FilterMax), plus one unfiltered "all" bundle, per
// SPEC_FULL.md §4.4.
func EmitThresholds(ctx context.Context, opts Opts, dscMap map[FamilyId]DuplexConsensus, sscPos, sscNeg map[FamilyId]StrandConsensus, counters *BasePositionCounters, header *sam.Header) error {
	if err := writeBundle(ctx, "all", opts, dscMap, sscPos, sscNeg, counters, header, nil); err != nil {
		return err
	}

	for _, v := range collectThresholds(dscMap, opts.FilterOn, opts.FilterMax) {
		threshold := v
		folder := fmt.Sprintf("max_variants_%d", v)
		if err := writeBundle(ctx, folder, opts, dscMap, sscPos, sscNeg, counters, header, &threshold); err != nil {
			return err
		}
	}
	return nil
}

// collectThresholds returns, in ascending order, every distinct value of
// filterOn's metric observed across dscMap that does not exceed filterMax.
func collectThresholds(dscMap map[FamilyId]DuplexConsensus, filterOn FilterMetric, filterMax int) []int {
	seen := map[int]bool{}
	var values []int
	for _, dc := range dscMap {
		v := filterOn.metric(dc)
		if v > filterMax || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Ints(values)
	return values
}

func writeBundle(ctx context.Context, folder string, opts Opts, dscMap map[FamilyId]DuplexConsensus, sscPos, sscNeg map[FamilyId]StrandConsensus, counters *BasePositionCounters, header *sam.Header, threshold *int) error {
	dir := filepath.Join(opts.OutDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.E(err, "couldn't create output folder", dir)
	}
	log.Printf("dsc: writing bundle %s", dir)

	keep := map[FamilyId]bool{}
	for fid, dc := range dscMap {
		if threshold == nil || opts.FilterOn.metric(dc) <= *threshold {
			keep[fid] = true
		}
	}

	prefix := filepath.Join(dir, folder)

	if err := writeAdductGTF(ctx, prefix+".adduct.gtf", opts.Specimen, dscMap, keep); err != nil {
		return err
	}
	if err := writeFamilyList(ctx, prefix+".adduct.families.txt.gz", keep); err != nil {
		return err
	}
	if err := writeJSONGz(ctx, prefix+".json.gz", dscMap, keep); err != nil {
		return err
	}

	summary := FormatSummary(opts.Specimen, dscMap, keep)
	if err := writeSummaryJSON(ctx, prefix+".summary.json", summary); err != nil {
		return err
	}
	if err := writeByChrCSV(ctx, prefix+".by_chr.csv", summary); err != nil {
		return err
	}
	if err := writeBaseChangeCSV(ctx, prefix+".variants_by_base.csv", summary.VariantBaseChanges); err != nil {
		return err
	}
	if err := writeBaseChangeCSV(ctx, prefix+".adducts_by_base.csv", summary.AdductBaseChanges); err != nil {
		return err
	}
	if err := writeByReadPositionCSV(ctx, prefix+".by_read_position.csv", counters); err != nil {
		return err
	}

	if err := writeBAMTriple(ctx, prefix, header, dscMap, sscPos, sscNeg, keep); err != nil {
		return err
	}
	return nil
}

type gtfRow struct {
	seqname, strand, attribute string
	start, end                 int
}

func writeAdductGTF(ctx context.Context, path, specimen string, dscMap map[FamilyId]DuplexConsensus, keep map[FamilyId]bool) error {
	var rows []gtfRow
	for fid, dc := range dscMap {
		if !keep[fid] {
			continue
		}
		for pos, a := range dc.Adducts {
			strand := "+"
			if a.Strand == StrandNeg {
				strand = "-"
			}
			rows = append(rows, gtfRow{
				seqname:   dc.Contig,
				start:     pos + 1,
				end:       pos + 1,
				strand:    strand,
				attribute: fmt.Sprintf("adduct %q; read_as %q;", string(a.Ref), string(a.Var)),
			})
		}
	}
	if len(rows) == 0 {
		log.Printf("dsc: no adducts found, skipping %s", path)
		return nil
	}

	// Ties on (seqname, start) are broken on the remaining fields so that
	// identical rows end up adjacent for dedupGTFRows.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].seqname != rows[j].seqname {
			return rows[i].seqname < rows[j].seqname
		}
		if rows[i].start != rows[j].start {
			return rows[i].start < rows[j].start
		}
		if rows[i].end != rows[j].end {
			return rows[i].end < rows[j].end
		}
		if rows[i].strand != rows[j].strand {
			return rows[i].strand < rows[j].strand
		}
		return rows[i].attribute < rows[j].attribute
	})
	rows = dedupGTFRows(rows)

	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create GTF file", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	w := f.Writer(ctx)
	for _, r := range rows {
		line := fmt.Sprintf("%s\t%s\tadduct\t%d\t%d\t.\t%s\t.\t%s\n",
			r.seqname, specimen, r.start, r.end, r.strand, r.attribute)
		if _, err := w.Write([]byte(line)); err != nil {
			return errors.E(err, "error writing GTF file", path)
		}
	}
	return nil
}

func dedupGTFRows(rows []gtfRow) []gtfRow {
	out := rows[:0:0]
	var prev *gtfRow
	for _, r := range rows {
		if prev != nil && *prev == r {
			continue
		}
		out = append(out, r)
		p := r
		prev = &p
	}
	return out
}

func writeFamilyList(ctx context.Context, path string, keep map[FamilyId]bool) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create family list file", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	gz := gzip.NewWriter(f.Writer(ctx))
	defer gz.Close()

	first := true
	for fid := range keep {
		if !first {
			if _, err := gz.Write([]byte("\n")); err != nil {
				return errors.E(err, "error writing family list", path)
			}
		}
		first = false
		if _, err := gz.Write([]byte(fid)); err != nil {
			return errors.E(err, "error writing family list", path)
		}
	}
	return nil
}

// jsonDuplex mirrors the field names the source protocol's dsc_info dict
// serializes to JSON.
type jsonDuplex struct {
	RefName                 string                `json:"ref_name"`
	Start                   int                   `json:"start"`
	End                     int                   `json:"end"`
	Cons                    string                `json:"cons"`
	NBases                  int                   `json:"nbases"`
	Adducts                 map[string]jsonAdduct `json:"adducts"`
	Variants                map[string]jsonVar    `json:"variants"`
	TotalVariants           int                   `json:"total_variants"`
	TotalVariantsAndAdducts int                   `json:"total_variants_and_adducts"`
}

type jsonAdduct struct {
	Strand string `json:"strand"`
	Var    string `json:"var"`
	Ref    string `json:"ref"`
}

type jsonVar struct {
	Var string `json:"var"`
	Ref string `json:"ref"`
}

func toJSONDuplex(dc DuplexConsensus) jsonDuplex {
	jd := jsonDuplex{
		RefName:                 dc.Contig,
		Start:                   dc.Start,
		End:                     dc.End,
		Cons:                    basesToString(dc.Cons),
		NBases:                  dc.NBases,
		Adducts:                 map[string]jsonAdduct{},
		Variants:                map[string]jsonVar{},
		TotalVariants:           dc.TotalVariants,
		TotalVariantsAndAdducts: dc.TotalVariantsAndAdducts,
	}
	for pos, a := range dc.Adducts {
		jd.Adducts[strconv.Itoa(pos)] = jsonAdduct{Strand: a.Strand.String(), Var: string(a.Var), Ref: string(a.Ref)}
	}
	for pos, v := range dc.Variants {
		jd.Variants[strconv.Itoa(pos)] = jsonVar{Var: string(v.Var), Ref: string(v.Ref)}
	}
	return jd
}

func basesToString(bs []Base) string {
	b := make([]byte, len(bs))
	for i, x := range bs {
		b[i] = byte(x)
	}
	return string(b)
}

func writeJSONGz(ctx context.Context, path string, dscMap map[FamilyId]DuplexConsensus, keep map[FamilyId]bool) error {
	out := map[string]jsonDuplex{}
	for fid, dc := range dscMap {
		if !keep[fid] {
			continue
		}
		out[string(fid)] = toJSONDuplex(dc)
	}

	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create JSON bundle", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	gz := gzip.NewWriter(f.Writer(ctx))
	defer gz.Close()
	if err := json.NewEncoder(gz).Encode(out); err != nil {
		return errors.E(err, "error writing JSON bundle", path)
	}
	return nil
}

func writeSummaryJSON(ctx context.Context, path string, summary Summary) error {
	byChr := map[string]ChrCounts{}
	for chr, c := range summary.ByChr {
		byChr[chr] = c
	}
	out := map[string]interface{}{
		"specimen":             summary.Total.Specimen,
		"ssc":                  summary.Total.SSC,
		"bases":                summary.Total.Bases,
		"variants":             summary.Total.Variants,
		"adducts":              summary.Total.Adducts,
		"by_chr":               byChr,
		"variant_base_changes": baseChangeTableJSON(summary.VariantBaseChanges),
		"adduct_base_changes":  baseChangeTableJSON(summary.AdductBaseChanges),
	}

	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create summary JSON", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	if err := json.NewEncoder(f.Writer(ctx)).Encode(out); err != nil {
		return errors.E(err, "error writing summary JSON", path)
	}
	return nil
}

func baseChangeTableJSON(t BaseChangeTable) map[string]map[string]int {
	out := map[string]map[string]int{}
	for v, row := range t {
		r := map[string]int{}
		for ref, n := range row {
			r[string(ref)] = n
		}
		out[string(v)] = r
	}
	return out
}

func writeByChrCSV(ctx context.Context, path string, summary Summary) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create by-chr CSV", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	w := csv.NewWriter(f.Writer(ctx))
	defer w.Flush()

	if err := w.Write([]string{"", "families", "bases", "variants", "adducts"}); err != nil {
		return errors.E(err, "error writing by-chr CSV", path)
	}

	var chrs []string
	for chr := range summary.ByChr {
		chrs = append(chrs, chr)
	}
	sort.Strings(chrs)
	for _, chr := range chrs {
		c := summary.ByChr[chr]
		row := []string{chr, strconv.Itoa(c.Families), strconv.Itoa(c.Bases), strconv.Itoa(c.Variants), strconv.Itoa(c.Adducts)}
		if err := w.Write(row); err != nil {
			return errors.E(err, "error writing by-chr CSV", path)
		}
	}
	return w.Error()
}

func writeBaseChangeCSV(ctx context.Context, path string, t BaseChangeTable) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create base-change CSV", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	w := csv.NewWriter(f.Writer(ctx))
	defer w.Flush()

	header := []string{"base"}
	for _, ref := range baseOrder {
		header = append(header, string(ref))
	}
	if err := w.Write(header); err != nil {
		return errors.E(err, "error writing base-change CSV", path)
	}
	for _, v := range baseOrder {
		row := []string{string(v)}
		for _, ref := range baseOrder {
			row = append(row, strconv.Itoa(t[v][ref]))
		}
		if err := w.Write(row); err != nil {
			return errors.E(err, "error writing base-change CSV", path)
		}
	}
	return w.Error()
}

func writeByReadPositionCSV(ctx context.Context, path string, counters *BasePositionCounters) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create read-position CSV", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	w := csv.NewWriter(f.Writer(ctx))
	defer w.Flush()

	if err := w.Write([]string{"pos", "adducts", "variants", "nreads"}); err != nil {
		return errors.E(err, "error writing read-position CSV", path)
	}

	positions := map[int]bool{}
	for p := range counters.NReads {
		positions[p] = true
	}
	for p := range counters.Variants {
		positions[p] = true
	}
	for p := range counters.Adducts {
		positions[p] = true
	}
	var sorted []int
	for p := range positions {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	for _, p := range sorted {
		row := []string{
			strconv.Itoa(p),
			strconv.Itoa(counters.Adducts[p]),
			strconv.Itoa(counters.Variants[p]),
			strconv.Itoa(counters.NReads[p]),
		}
		if err := w.Write(row); err != nil {
			return errors.E(err, "error writing read-position CSV", path)
		}
	}
	return w.Error()
}

// writeBAMTriple writes the DSC, SSC.POS, and SSC.NEG BAM files for a
// bundle, each synthesized with one record per kept family, then sorts and
// indexes them via an external samtools invocation (sorting/indexing output
// BAM is explicitly delegated to a standard tool, not reimplemented here).
func writeBAMTriple(ctx context.Context, prefix string, header *sam.Header, dscMap map[FamilyId]DuplexConsensus, sscPos, sscNeg map[FamilyId]StrandConsensus, keep map[FamilyId]bool) error {
	type triple struct {
		suffix string
		flag   sam.Flags
		write  func(*bam.Writer) error
	}

	triples := []triple{
		{"DSC", 99, func(w *bam.Writer) error { return writeDSCRecords(w, header, dscMap, keep, 99) }},
		{"SSC.POS", 99, func(w *bam.Writer) error { return writeStrandRecords(w, header, sscPos, keep, 99) }},
		{"SSC.NEG", 83, func(w *bam.Writer) error { return writeStrandRecords(w, header, sscNeg, keep, 83) }},
	}

	for _, t := range triples {
		path := fmt.Sprintf("%s.%s.bam", prefix, t.suffix)
		f, err := file.Create(ctx, path)
		if err != nil {
			return errors.E(err, "couldn't create BAM file", path)
		}
		w, err := bam.NewWriter(f.Writer(ctx), header, 1)
		if err != nil {
			f.Close(ctx) // nolint: errcheck
			return errors.E(err, "couldn't create BAM writer for", path)
		}
		if err := t.write(w); err != nil {
			w.Close()
			f.Close(ctx) // nolint: errcheck
			return err
		}
		if err := w.Close(); err != nil {
			f.Close(ctx) // nolint: errcheck
			return errors.E(err, "error closing BAM writer for", path)
		}
		if err := f.Close(ctx); err != nil {
			return errors.E(err, "error closing BAM file", path)
		}
		if err := sortAndIndexBAM(path); err != nil {
			return err
		}
	}
	return nil
}

func writeDSCRecords(w *bam.Writer, header *sam.Header, dscMap map[FamilyId]DuplexConsensus, keep map[FamilyId]bool, flag sam.Flags) error {
	for fid, dc := range dscMap {
		if !keep[fid] {
			continue
		}
		ref := refByName(header, dc.Contig)
		if ref == nil {
			continue
		}
		rec, err := synthesizeRecord(string(fid), ref, dc.Start, basesToString(dc.Cons), flag)
		if err != nil {
			return errors.E(err, "couldn't synthesize DSC record for family", string(fid))
		}
		if err := w.Write(rec); err != nil {
			return errors.E(err, "error writing DSC record for family", string(fid))
		}
	}
	return nil
}

func writeStrandRecords(w *bam.Writer, header *sam.Header, sscMap map[FamilyId]StrandConsensus, keep map[FamilyId]bool, flag sam.Flags) error {
	for fid, sc := range sscMap {
		if !keep[fid] {
			continue
		}
		ref := refByName(header, sc.Contig)
		if ref == nil {
			continue
		}
		rec, err := synthesizeRecord(string(fid), ref, sc.Start, basesToString(sc.Cons), flag)
		if err != nil {
			return errors.E(err, "couldn't synthesize SSC record for family", string(fid))
		}
		if err := w.Write(rec); err != nil {
			return errors.E(err, "error writing SSC record for family", string(fid))
		}
	}
	return nil
}

// synthesizeRecord builds the single-op-CIGAR alignment record shared by
// every BAM output: mapping quality 20, all base qualities '?' (ASCII 63).
// Record.Qual stores the raw Phred score, not the printable character (SAM
// text encodes it as char-33 and decodes it back by subtracting 33), so the
// stored byte is 30, the raw value of '?', per SPEC_FULL.md §4.4.
func synthesizeRecord(name string, ref *sam.Reference, start int, cons string, flag sam.Flags) (*sam.Record, error) {
	qual := make([]byte, len(cons))
	for i := range qual {
		qual[i] = 30
	}
	rec, err := sam.NewRecord(name, ref, nil, start, -1, 0, 20,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(cons))}, []byte(cons), qual, nil)
	if err != nil {
		return nil, err
	}
	rec.Flags = flag
	return rec, nil
}

func refByName(h *sam.Header, name string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == name {
			return ref
		}
	}
	return nil
}

// sortAndIndexBAM sorts path in place and writes its .bai index, shelling
// out to samtools the same way the source protocol shells out to
// pysam.sort/pysam.index (themselves samtools wrappers) — sorting and
// indexing BAM output is explicitly delegated to a standard tool, not
// reimplemented in this package.
func sortAndIndexBAM(path string) error {
	sorted := path + ".sorted.bam"
	if out, err := exec.Command("samtools", "sort", "-o", sorted, path).CombinedOutput(); err != nil {
		return errors.E(err, fmt.Sprintf("samtools sort failed: %s", out))
	}
	if err := os.Rename(sorted, path); err != nil {
		return errors.E(err, "couldn't rename sorted BAM into place", path)
	}
	if out, err := exec.Command("samtools", "index", path).CombinedOutput(); err != nil {
		return errors.E(err, fmt.Sprintf("samtools index failed: %s", out))
	}
	return nil
}
