package dsc

// TotalCounts is the specimen-wide rollup of a filtered DSC set.
//
// Adducts is intentionally double-counted relative to the per-family
// adducts maps: it is incremented once per family (by the family's adduct
// count) and again once per individual adduct while iterating that same
// family's adducts. This reproduces the source protocol's format_summary
// behavior bit-for-bit; downstream reporting reads this field as-is. See
// DESIGN.md and SPEC_FULL.md §9.
type TotalCounts struct {
	Specimen string `json:"specimen"`
	SSC      int    `json:"ssc"`
	Bases    int    `json:"bases"`
	Variants int    `json:"variants"`
	Adducts  int    `json:"adducts"`
}

// ChrCounts is the per-contig rollup, same double-count behavior as
// TotalCounts for Adducts.
type ChrCounts struct {
	Families int `json:"families"`
	Bases    int `json:"bases"`
	Variants int `json:"variants"`
	Adducts  int `json:"adducts"`
}

// BaseChangeTable is a 4x4 table of base-change counts, indexed [var][ref],
// both ranging over A, T, C, G.
type BaseChangeTable map[Base]map[Base]int

// NewBaseChangeTable returns a table with every (var, ref) cell over
// {A,T,C,G} pre-populated at zero, matching the source's reindexed,
// NaN-filled DataFrame output.
func NewBaseChangeTable() BaseChangeTable {
	t := BaseChangeTable{}
	for _, v := range []Base{BaseA, BaseT, BaseC, BaseG} {
		t[v] = map[Base]int{BaseA: 0, BaseT: 0, BaseC: 0, BaseG: 0}
	}
	return t
}

func (t BaseChangeTable) add(v, r Base) {
	row, ok := t[v]
	if !ok {
		row = map[Base]int{BaseA: 0, BaseT: 0, BaseC: 0, BaseG: 0}
		t[v] = row
	}
	row[r]++
}

// Summary is the complete set of rollups produced from one filtered DSC
// set, corresponding to format_summary in the source protocol.
type Summary struct {
	Total              TotalCounts
	ByChr              map[string]ChrCounts
	VariantBaseChanges BaseChangeTable
	AdductBaseChanges  BaseChangeTable
}

// FormatSummary computes Summary from the families in dscMap whose id
// appears in keep.
func FormatSummary(specimen string, dscMap map[FamilyId]DuplexConsensus, keep map[FamilyId]bool) Summary {
	s := Summary{
		Total:              TotalCounts{Specimen: specimen},
		ByChr:              map[string]ChrCounts{},
		VariantBaseChanges: NewBaseChangeTable(),
		AdductBaseChanges:  NewBaseChangeTable(),
	}

	for fid, dc := range dscMap {
		if !keep[fid] {
			continue
		}

		s.Total.SSC++
		s.Total.Bases += dc.NBases

		chr := s.ByChr[dc.Contig]
		chr.Families++
		chr.Bases += dc.NBases

		// Double-count, preserved by contract: once per family here...
		s.Total.Adducts += len(dc.Adducts)
		chr.Adducts += len(dc.Adducts)

		for _, v := range dc.Variants {
			s.Total.Variants++
			chr.Variants++
			s.VariantBaseChanges.add(v.Var, v.Ref)
		}

		for _, a := range dc.Adducts {
			// ...and again per adduct here.
			s.Total.Adducts++
			chr.Adducts++
			s.AdductBaseChanges.add(a.Var, a.Ref)
		}

		s.ByChr[dc.Contig] = chr
	}

	return s
}
