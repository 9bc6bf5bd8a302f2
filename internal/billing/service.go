package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/blobstore"
)

type Service struct {
	repo  Repository
	blobs blobstore.Store
	log   zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		blobs: blobs,
		log:   log.With().Str("component", "billing").Logger(),
	}
}

// CreateBill stores the rendered bill PDF and records the total. The PDF
// bytes are treated as opaque; nothing here inspects them.
func (s *Service) CreateBill(ctx context.Context, patientID uuid.UUID, totalAmount int64, pdf []byte) (*Bill, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("create bill: patient id is required")
	}
	if totalAmount < 0 {
		return nil, fmt.Errorf("create bill: total amount must not be negative")
	}

	url := ""
	if len(pdf) > 0 {
		key := fmt.Sprintf("bills/bill_%s.pdf", uuid.NewString())
		u, err := s.blobs.Put(ctx, key, "application/pdf", pdf)
		if err != nil {
			return nil, fmt.Errorf("store bill pdf: %w", err)
		}
		url = u
	}

	bill, err := s.repo.InsertBill(ctx, Bill{
		PatientID:   patientID,
		TotalAmount: totalAmount,
		PDFURL:      url,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bill_id", bill.ID.String()).
		Str("patient_id", patientID.String()).
		Int64("total_amount", totalAmount).
		Msg("bill created")

	return bill, nil
}

// CreateDischarge stores a discharge summary PDF for a patient.
func (s *Service) CreateDischarge(ctx context.Context, patientID uuid.UUID, fileName string, pdf []byte) (*Discharge, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("create discharge: patient id is required")
	}
	if fileName == "" {
		return nil, fmt.Errorf("create discharge: file name is required")
	}

	url := ""
	if len(pdf) > 0 {
		key := fmt.Sprintf("discharges/%s_%s.pdf", fileName, uuid.NewString())
		u, err := s.blobs.Put(ctx, key, "application/pdf", pdf)
		if err != nil {
			return nil, fmt.Errorf("store discharge pdf: %w", err)
		}
		url = u
	}

	discharge, err := s.repo.InsertDischarge(ctx, Discharge{
		PatientID: patientID,
		FileName:  fileName,
		PDFURL:    url,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("discharge_id", discharge.ID.String()).
		Str("patient_id", patientID.String()).
		Msg("discharge summary created")

	return discharge, nil
}

// History assembles the patient's bills and discharge reports with simple
// sums.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) (*History, error) {
	bills, err := s.repo.ListBillsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	discharges, err := s.repo.ListDischargesByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list discharges: %w", err)
	}

	var total int64
	for _, b := range bills {
		total += b.TotalAmount
	}

	return &History{
		Bills:        bills,
		Discharges:   discharges,
		TotalBills:   len(bills),
		TotalAmount:  total,
		TotalReports: len(discharges),
	}, nil
}

func (s *Service) Bills(ctx context.Context, patientID uuid.UUID) ([]Bill, error) {
	return s.repo.ListBillsByPatient(ctx, patientID)
}

func (s *Service) Discharges(ctx context.Context, patientID uuid.UUID) ([]Discharge, error) {
	return s.repo.ListDischargesByPatient(ctx, patientID)
}
