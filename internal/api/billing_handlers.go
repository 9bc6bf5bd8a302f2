package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-queue-service/internal/billing"
)

// BillingService is the slice of the billing service the HTTP layer uses.
type BillingService interface {
	CreateBill(ctx context.Context, patientID uuid.UUID, totalAmount int64, pdf []byte) (*billing.Bill, error)
	CreateDischarge(ctx context.Context, patientID uuid.UUID, fileName string, pdf []byte) (*billing.Discharge, error)
	Bills(ctx context.Context, patientID uuid.UUID) ([]billing.Bill, error)
	Discharges(ctx context.Context, patientID uuid.UUID) ([]billing.Discharge, error)
	History(ctx context.Context, patientID uuid.UUID) (*billing.History, error)
}

const maxPDFSize = 10 << 20 // 10 MB

func createBillHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxPDFSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "expected multipart form")
			return
		}

		patientID, err := uuid.Parse(r.FormValue("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		total, err := strconv.ParseInt(r.FormValue("total_amount"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_total_amount", "total_amount must be an integer")
			return
		}

		pdf, ok := formPDF(w, r)
		if !ok {
			return
		}

		bill, err := svc.CreateBill(r.Context(), patientID, total, pdf)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toBillResponse(bill))
	}
}

func createDischargeHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxPDFSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "expected multipart form")
			return
		}

		patientID, err := uuid.Parse(r.FormValue("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		fileName := r.FormValue("file_name")
		if fileName == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "file_name is required")
			return
		}

		pdf, ok := formPDF(w, r)
		if !ok {
			return
		}

		discharge, err := svc.CreateDischarge(r.Context(), patientID, fileName, pdf)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toDischargeResponse(discharge))
	}
}

// formPDF reads the optional "pdf" file part. A missing part yields nil
// bytes: a record without an artifact is allowed.
func formPDF(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	file, _, err := r.FormFile("pdf")
	if err == http.ErrMissingFile {
		return nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pdf", "could not read pdf part")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPDFSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pdf", "could not read pdf part")
		return nil, false
	}
	return data, true
}

func listBillsHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "patientID")
		if !ok {
			return
		}

		bills, err := svc.Bills(r.Context(), patientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]BillResponse, 0, len(bills))
		for i := range bills {
			out = append(out, toBillResponse(&bills[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listDischargesHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "patientID")
		if !ok {
			return
		}

		discharges, err := svc.Discharges(r.Context(), patientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]DischargeResponse, 0, len(discharges))
		for i := range discharges {
			out = append(out, toDischargeResponse(&discharges[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func historyHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "patientID")
		if !ok {
			return
		}

		h, err := svc.History(r.Context(), patientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := HistoryResponse{
			Bills:        make([]BillResponse, 0, len(h.Bills)),
			Discharges:   make([]DischargeResponse, 0, len(h.Discharges)),
			TotalBills:   h.TotalBills,
			TotalAmount:  h.TotalAmount,
			TotalReports: h.TotalReports,
		}
		for i := range h.Bills {
			resp.Bills = append(resp.Bills, toBillResponse(&h.Bills[i]))
		}
		for i := range h.Discharges {
			resp.Discharges = append(resp.Discharges, toDischargeResponse(&h.Discharges[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
