package reporting

import (
	"time"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

func fptr(v float64) *float64 { return &v }

func sampleReport(id string) *validation.Report {
	return &validation.Report{
		ID:          id,
		Source:      "batch.csv",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RecordCount: 4,
		DissolvedTotal: []validation.DissolvedTotalRow{{
			SampleGroupID:          "S1",
			Analyte:                "chumbo",
			DissolvedConcentration: fptr(0.005),
			TotalConcentration:     fptr(0.015),
			Status:                 verdict.OK,
			Rationale:              "dissolved <= total",
		}},
		QC: []validation.QCRow{{
			SampleGroupID: "S1",
			SampleNumber:  "101",
			Method:        "Metais Totais",
			AnalysisName:  "Ítrio",
			RecoveryPct:   fptr(98),
			Status:        verdict.Approved,
		}},
		Legislation: &validation.LegislationReport{
			Regulation:  "CONAMA 430",
			PreferTotal: true,
			Rows: []validation.LegislationRow{{
				SampleGroupID: "S1",
				Analyte:       "chumbo",
				LegalAnalyte:  "chumbo",
				FractionName:  "total",
				Concentration: fptr(0.015),
				Limit:         fptr(0.01),
				Status:        verdict.NonConforming,
			}},
			Rollup: []validation.SampleRollup{{SampleGroupID: "S1", Status: verdict.NonConforming}},
		},
		Samples: []validation.SampleVerdict{{
			SampleGroupID: "S1",
			Status:        verdict.NonConforming,
			Sources: map[validation.Checker]verdict.Status{
				validation.CheckerDissolvedTotal: verdict.OK,
				validation.CheckerLegislation:    verdict.NonConforming,
			},
		}},
		Batch: verdict.NonConforming,
	}
}
