package main

// parse-ssc reconciles paired single-strand consensus (SSC) reads from
// duplex-sequenced DNA into double-strand consensus (DSC) calls, classifies
// mismatches as variants or adducts, and emits filtered output bundles.
//
// Usage: parse-ssc <specimen> <filter_on> <filter_max>

import (
	"flag"
	"os"
	"strconv"

	"github.com/FredHutch/wgs-duplex-seq/dsc"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
  parse-ssc <specimen> <filter_on> <filter_max>

Reads POS.SSC.bam and NEG.SSC.bam from the current directory, classifies
every mismatch as a confirmed variant or a single-strand adduct, and writes
one output bundle per distinct value of <filter_on> up to <filter_max>,
plus one unfiltered "all" bundle.

  specimen    sample name, threaded into every summary object
  filter_on   "total_variants" or "total_variants_and_adducts"
  filter_max  highest threshold value a bundle will be written for
`)
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()
	ctx := vcontext.Background()

	flag.Parse()
	args := flag.Args()
	if len(args) != 3 {
		flag.Usage()
		os.Exit(1)
	}

	specimen := args[0]
	log.Printf("Processing specimen: %s", specimen)

	filterOn, ok := dsc.ParseFilterMetric(args[1])
	if !ok {
		log.Fatalf("ERROR: Not recognized: %s", args[1])
	}

	filterMax, err := strconv.Atoi(args[2])
	if err != nil || filterMax < 0 {
		log.Fatalf("ERROR: filter_max must be a non-negative integer, got %q", args[2])
	}

	const posBAM = "POS.SSC.bam"
	const negBAM = "NEG.SSC.bam"
	if _, err := file.Stat(ctx, posBAM); err != nil {
		log.Fatalf("ERROR: missing input BAM %s", posBAM)
	}
	if _, err := file.Stat(ctx, negBAM); err != nil {
		log.Fatalf("ERROR: missing input BAM %s", negBAM)
	}

	opts := dsc.Opts{
		Specimen:   specimen,
		FilterOn:   filterOn,
		FilterMax:  filterMax,
		PosBAMPath: posBAM,
		NegBAMPath: negBAM,
		OutDir:     ".",
	}

	if err := dsc.Run(ctx, opts); err != nil {
		log.Fatalf("parse-ssc failed: %v", err)
	}
}
