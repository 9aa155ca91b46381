// Package eval scores the recommendation pipeline against a JSON suite of
// report fixtures with expected and forbidden recommendation ids.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"

	"diskwise/engine"
	"diskwise/logger"
	"diskwise/model"
)

type Suite struct {
	Cases []Case `json:"cases"`
}

// Case references a report fixture relative to the suite file.
type Case struct {
	Name           string   `json:"name"`
	Report         string   `json:"report"`
	ExpectedTopIDs []string `json:"expected_top_ids"`
	ForbiddenIDs   []string `json:"forbidden_ids"`
}

type Result struct {
	TotalCases            int          `json:"total_cases"`
	PassedCases           int          `json:"passed_cases"`
	PrecisionAt3          float64      `json:"precision_at_3"`
	ContradictionRate     float64      `json:"contradiction_rate"`
	UnsafeRecommendations uint64       `json:"unsafe_recommendations"`
	CaseResults           []CaseResult `json:"case_results"`
}

type CaseResult struct {
	Name               string   `json:"name"`
	Passed             bool     `json:"passed"`
	ObservedIDs        []string `json:"observed_ids"`
	ExpectedTopIDs     []string `json:"expected_top_ids"`
	ForbiddenHits      []string `json:"forbidden_hits"`
	PrecisionAt3       float64  `json:"precision_at_3"`
	ContradictionCount uint64   `json:"contradiction_count"`
}

// EvaluateSuiteFile loads and runs a suite. Fixture paths resolve relative
// to the suite file's directory.
func EvaluateSuiteFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read evaluation suite %s: %w", path, err)
	}
	var suite Suite
	if err := json.Unmarshal(data, &suite); err != nil {
		return Result{}, fmt.Errorf("failed to parse evaluation suite JSON: %w", err)
	}
	return EvaluateSuite(filepath.Dir(path), suite)
}

func EvaluateSuite(suiteDir string, suite Suite) (Result, error) {
	result := Result{TotalCases: len(suite.Cases)}
	if len(suite.Cases) == 0 {
		return result, nil
	}

	bar := progressbar.NewOptions(len(suite.Cases),
		progressbar.OptionSetDescription("evaluating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	precisionTotal := 0.0
	contradictionCases := 0
	for _, suiteCase := range suite.Cases {
		caseResult, err := runCase(suiteDir, suiteCase)
		if err != nil {
			return Result{}, err
		}
		_ = bar.Add(1)

		precisionTotal += caseResult.precision
		if caseResult.contradictions > 0 {
			contradictionCases++
		}
		result.UnsafeRecommendations += caseResult.unsafeCount
		if caseResult.result.Passed {
			result.PassedCases++
		}
		result.CaseResults = append(result.CaseResults, caseResult.result)
	}
	_ = bar.Finish()

	total := float64(result.TotalCases)
	result.PrecisionAt3 = precisionTotal / total
	result.ContradictionRate = float64(contradictionCases) / total
	return result, nil
}

type caseOutcome struct {
	result         CaseResult
	precision      float64
	contradictions uint64
	unsafeCount    uint64
}

func runCase(suiteDir string, suiteCase Case) (caseOutcome, error) {
	reportPath := filepath.Join(suiteDir, suiteCase.Report)
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return caseOutcome{}, fmt.Errorf("failed to read report fixture %s: %w", reportPath, err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return caseOutcome{}, fmt.Errorf("failed to parse fixture %s: %w", reportPath, err)
	}

	bundle, err := engine.Analyze(&report)
	if err != nil {
		return caseOutcome{}, err
	}

	observed := make([]string, 0, len(bundle.Recommendations))
	var unsafeCount uint64
	for _, rec := range bundle.Recommendations {
		observed = append(observed, rec.ID)
		if !rec.PolicySafe {
			unsafeCount++
		}
	}

	var forbiddenHits []string
	for _, forbidden := range suiteCase.ForbiddenIDs {
		for _, id := range observed {
			if id == forbidden {
				forbiddenHits = append(forbiddenHits, forbidden)
				break
			}
		}
	}

	precision, hits := precisionAt3(bundle.Recommendations, suiteCase.ExpectedTopIDs)
	passed := len(forbiddenHits) == 0 && (len(suiteCase.ExpectedTopIDs) == 0 || hits > 0)
	if !passed {
		logger.Debugf("case %s failed: forbidden hits %v, top-3 hits %d", suiteCase.Name, forbiddenHits, hits)
	}

	return caseOutcome{
		result: CaseResult{
			Name:               suiteCase.Name,
			Passed:             passed,
			ObservedIDs:        observed,
			ExpectedTopIDs:     suiteCase.ExpectedTopIDs,
			ForbiddenHits:      forbiddenHits,
			PrecisionAt3:       precision,
			ContradictionCount: bundle.ContradictionCount,
		},
		precision:      precision,
		contradictions: bundle.ContradictionCount,
		unsafeCount:    unsafeCount,
	}, nil
}

// precisionAt3 ranks by confidence descending; the stable sort keeps the
// declared emission order on exact ties.
func precisionAt3(recommendations []model.Recommendation, expectedIDs []string) (float64, int) {
	ranked := make([]model.Recommendation, len(recommendations))
	copy(ranked, recommendations)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	top := len(ranked)
	if top > 3 {
		top = 3
	}
	if top == 0 {
		return 0, 0
	}

	expected := make(map[string]bool, len(expectedIDs))
	for _, id := range expectedIDs {
		expected[id] = true
	}
	hits := 0
	for _, rec := range ranked[:top] {
		if expected[rec.ID] {
			hits++
		}
	}
	return float64(hits) / float64(top), hits
}
