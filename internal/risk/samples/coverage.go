package samples

import "github.com/skyrisk/weatherrisk-api/internal/risk/model"

// CoverageReport is a richer coverage diagnostic than the plain adequate
// bool on SampleCollection: year/sample adequacy ratios and a blended
// adequacy score, surfaced as a read-only diagnostic.
type CoverageReport struct {
	YearsRequested int
	YearsWithData  int
	TotalSamples   int
	Adequate       bool

	YearCoverageRatio   float64
	SampleCoverageRatio float64
	AdequacyScore       float64

	SamplesByYear map[int]int
}

// ValidateCoverage builds a CoverageReport from a SampleCollection against
// the configured minima. The adequacy score blends year-coverage and
// sample-coverage ratios 50/50, each capped at 1.0.
func ValidateCoverage(collection model.SampleCollection, settings CoverageSettings) CoverageReport {
	byYear := map[int]int{}
	for _, s := range collection.Samples {
		byYear[s.Year]++
	}

	yearRatio := ratio(collection.Coverage.YearsWithData, settings.MinYears)
	sampleRatio := ratio(collection.Coverage.TotalSamples, settings.MinSamples)

	return CoverageReport{
		YearsRequested:      collection.Coverage.YearsRequested,
		YearsWithData:       collection.Coverage.YearsWithData,
		TotalSamples:        collection.Coverage.TotalSamples,
		Adequate:            collection.Coverage.Adequate,
		YearCoverageRatio:   yearRatio,
		SampleCoverageRatio: sampleRatio,
		AdequacyScore:       0.5*yearRatio + 0.5*sampleRatio,
		SamplesByYear:       byYear,
	}
}

func ratio(value, minimum int) float64 {
	if minimum <= 0 {
		return 1.0
	}
	r := float64(value) / float64(minimum)
	if r > 1.0 {
		return 1.0
	}
	return r
}
