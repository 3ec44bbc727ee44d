package dataprocessing

import (
	"math"

	"agencypulse/pkg/contracts/domain"
)

var nan = math.NaN()

const sampleCSV = `AGENCY_ID,AGENCY_APPOINTMENT_YEAR,PROD_LINE,PROD_ABBR,RETENTION_RATIO,LOSS_RATIO,GROWTH_RATE_3YR,ACTIVE_PRODUCERS,POLY_INFORCE_QTY,PREV_POLY_INFORCE_QTY,WRTN_PREM_AMT,NB_WRTN_PREM_AMT
1,1998,CL,BOP,0.91,0.40,0.10,5,120,110,"$12,500.50",1000
2,1998,PL,HO,0.62,0.75,-0.05,3,80,90,8000,500
3,2005,CL,WC,0.35,1.20,0.30,2,40,60,4000,
4,2005,PL,PA,,0.55,0.00,4,100,95,9500,700
`

// sampleRecords mirrors sampleCSV.
func sampleRecords() []domain.AgencyRecord {
	return []domain.AgencyRecord{
		{AgencyID: "1", AgencyAppointmentYear: 1998, ProdLine: "CL", ProdAbbr: "BOP",
			RetentionRatio: 0.91, LossRatio: 0.40, GrowthRate3Yr: 0.10, ActiveProducers: 5,
			PolyInforceQty: 120, PrevPolyInforceQty: 110, WrtnPremAmt: 12500.50, NBWrtnPremAmt: 1000},
		{AgencyID: "2", AgencyAppointmentYear: 1998, ProdLine: "PL", ProdAbbr: "HO",
			RetentionRatio: 0.62, LossRatio: 0.75, GrowthRate3Yr: -0.05, ActiveProducers: 3,
			PolyInforceQty: 80, PrevPolyInforceQty: 90, WrtnPremAmt: 8000, NBWrtnPremAmt: 500},
		{AgencyID: "3", AgencyAppointmentYear: 2005, ProdLine: "CL", ProdAbbr: "WC",
			RetentionRatio: 0.35, LossRatio: 1.20, GrowthRate3Yr: 0.30, ActiveProducers: 2,
			PolyInforceQty: 40, PrevPolyInforceQty: 60, WrtnPremAmt: 4000, NBWrtnPremAmt: nan},
		{AgencyID: "4", AgencyAppointmentYear: 2005, ProdLine: "PL", ProdAbbr: "PA",
			RetentionRatio: nan, LossRatio: 0.55, GrowthRate3Yr: 0.00, ActiveProducers: 4,
			PolyInforceQty: 100, PrevPolyInforceQty: 95, WrtnPremAmt: 9500, NBWrtnPremAmt: 700},
	}
}

func sampleDataset() *Dataset {
	return NewDataset("sample", sampleRecords())
}

// measureRecord builds a record with every measure missing except those given.
func measureRecord(id string, values map[domain.Field]float64) domain.AgencyRecord {
	rec := domain.AgencyRecord{
		AgencyID:           id,
		RetentionRatio:     nan,
		LossRatio:          nan,
		GrowthRate3Yr:      nan,
		ActiveProducers:    nan,
		PolyInforceQty:     nan,
		PrevPolyInforceQty: nan,
		WrtnPremAmt:        nan,
		NBWrtnPremAmt:      nan,
	}
	for f, v := range values {
		switch f {
		case domain.FieldRetentionRatio:
			rec.RetentionRatio = v
		case domain.FieldLossRatio:
			rec.LossRatio = v
		case domain.FieldGrowthRate3Yr:
			rec.GrowthRate3Yr = v
		case domain.FieldActiveProducers:
			rec.ActiveProducers = v
		case domain.FieldPolyInforceQty:
			rec.PolyInforceQty = v
		case domain.FieldPrevPolyInforceQty:
			rec.PrevPolyInforceQty = v
		case domain.FieldWrtnPremAmt:
			rec.WrtnPremAmt = v
		case domain.FieldNBWrtnPremAmt:
			rec.NBWrtnPremAmt = v
		}
	}
	return rec
}
