package billing

import (
	"time"

	"github.com/google/uuid"
)

// Bill records a generated bill PDF for a patient. The PDF itself lives in
// blob storage; only the URL is kept here.
type Bill struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	TotalAmount int64 // smallest currency unit
	PDFURL      string
	CreatedAt   time.Time
}

// Discharge records a discharge summary PDF for a patient.
type Discharge struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	FileName  string
	PDFURL    string
	CreatedAt time.Time
}

// History is the per-patient medical history summary: counts plus a plain
// sum of bill totals.
type History struct {
	Bills        []Bill
	Discharges   []Discharge
	TotalBills   int
	TotalAmount  int64
	TotalReports int
}
