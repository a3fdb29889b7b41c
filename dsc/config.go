package dsc

// FilterMetric selects which DuplexConsensus field a threshold bundle is
// filtered on.
type FilterMetric int

const (
	FilterTotalVariants FilterMetric = iota
	FilterTotalVariantsAndAdducts
)

// ParseFilterMetric validates and converts the CLI's filter_on argument.
func ParseFilterMetric(s string) (FilterMetric, bool) {
	switch s {
	case "total_variants":
		return FilterTotalVariants, true
	case "total_variants_and_adducts":
		return FilterTotalVariantsAndAdducts, true
	}
	return 0, false
}

func (m FilterMetric) metric(dc DuplexConsensus) int {
	if m == FilterTotalVariants {
		return dc.TotalVariants
	}
	return dc.TotalVariantsAndAdducts
}

// Opts carries the configuration for one ParseSSC run.
type Opts struct {
	// Specimen is the sample name threaded into every summary object and
	// used as the GTF "source" column.
	Specimen string

	// FilterOn selects the metric used to bucket families into threshold
	// folders.
	FilterOn FilterMetric

	// FilterMax is the highest threshold value a bundle will be written
	// for; distinct metric values above it are skipped.
	FilterMax int

	// PosBAMPath and NegBAMPath are the two required SSC input BAMs.
	PosBAMPath string
	NegBAMPath string

	// OutDir is the directory under which every "max_variants_N" and "all"
	// folder is created.
	OutDir string
}
