package dsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSummary_DoubleCountsAdducts(t *testing.T) {
	dc := DuplexConsensus{
		Contig: "chr1",
		NBases: 4,
		Adducts: map[int]Adduct{
			101: {Strand: StrandPos, Var: BaseG, Ref: BaseC},
			102: {Strand: StrandNeg, Var: BaseT, Ref: BaseA},
		},
	}
	dscMap := map[FamilyId]DuplexConsensus{"f1": dc}
	keep := map[FamilyId]bool{"f1": true}

	summary := FormatSummary("spec1", dscMap, keep)

	// len(dc.Adducts) == 2, counted once as a batch and once per adduct: 2 + 2 = 4.
	assert.Equal(t, 4, summary.Total.Adducts)
	assert.Equal(t, 4, summary.ByChr["chr1"].Adducts)
}

func TestFormatSummary_SkipsFamiliesNotKept(t *testing.T) {
	dscMap := map[FamilyId]DuplexConsensus{
		"f1": {Contig: "chr1", NBases: 4},
		"f2": {Contig: "chr1", NBases: 4},
	}
	keep := map[FamilyId]bool{"f1": true}

	summary := FormatSummary("spec1", dscMap, keep)
	assert.Equal(t, 1, summary.Total.SSC)
	assert.Equal(t, 4, summary.Total.Bases)
}

func TestFormatSummary_PerChrRollup(t *testing.T) {
	dscMap := map[FamilyId]DuplexConsensus{
		"f1": {Contig: "chr1", NBases: 4},
		"f2": {Contig: "chr2", NBases: 6},
	}
	keep := map[FamilyId]bool{"f1": true, "f2": true}

	summary := FormatSummary("spec1", dscMap, keep)
	assert.Equal(t, 1, summary.ByChr["chr1"].Families)
	assert.Equal(t, 4, summary.ByChr["chr1"].Bases)
	assert.Equal(t, 1, summary.ByChr["chr2"].Families)
	assert.Equal(t, 6, summary.ByChr["chr2"].Bases)
}

func TestNewBaseChangeTable_PrePopulatedZero(t *testing.T) {
	table := NewBaseChangeTable()
	for _, v := range []Base{BaseA, BaseT, BaseC, BaseG} {
		for _, r := range []Base{BaseA, BaseT, BaseC, BaseG} {
			assert.Equal(t, 0, table[v][r])
		}
	}
}
