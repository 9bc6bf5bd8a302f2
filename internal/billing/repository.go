package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	InsertBill(ctx context.Context, b Bill) (*Bill, error)
	InsertDischarge(ctx context.Context, d Discharge) (*Discharge, error)
	ListBillsByPatient(ctx context.Context, patientID uuid.UUID) ([]Bill, error)
	ListDischargesByPatient(ctx context.Context, patientID uuid.UUID) ([]Discharge, error)
}
