package dsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dcWithMetric(totalVariants, totalVariantsAndAdducts int) DuplexConsensus {
	return DuplexConsensus{TotalVariants: totalVariants, TotalVariantsAndAdducts: totalVariantsAndAdducts}
}

func TestCollectThresholds_DistinctSortedAndBounded(t *testing.T) {
	dscMap := map[FamilyId]DuplexConsensus{
		"f1": dcWithMetric(0, 0),
		"f2": dcWithMetric(3, 3),
		"f3": dcWithMetric(3, 3),
		"f4": dcWithMetric(9, 9),
	}
	got := collectThresholds(dscMap, FilterTotalVariants, 5)
	assert.Equal(t, []int{0, 3}, got)
}

func TestCollectThresholds_UsesConfiguredMetric(t *testing.T) {
	dscMap := map[FamilyId]DuplexConsensus{
		"f1": dcWithMetric(0, 2),
		"f2": dcWithMetric(5, 2),
	}
	got := collectThresholds(dscMap, FilterTotalVariantsAndAdducts, 10)
	assert.Equal(t, []int{2}, got)
}

func TestCollectThresholds_Empty(t *testing.T) {
	got := collectThresholds(map[FamilyId]DuplexConsensus{}, FilterTotalVariants, 5)
	assert.Empty(t, got)
}

func TestDedupGTFRows(t *testing.T) {
	rows := []gtfRow{
		{seqname: "chr1", start: 10, end: 10, strand: "+", attribute: `adduct "C"; read_as "G";`},
		{seqname: "chr1", start: 10, end: 10, strand: "+", attribute: `adduct "C"; read_as "G";`},
		{seqname: "chr1", start: 12, end: 12, strand: "-", attribute: `adduct "A"; read_as "T";`},
	}
	deduped := dedupGTFRows(rows)
	assert.Len(t, deduped, 2)
	assert.Equal(t, 10, deduped[0].start)
	assert.Equal(t, 12, deduped[1].start)
}
