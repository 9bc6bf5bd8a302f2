package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) InsertBill(ctx context.Context, b Bill) (*Bill, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bills (id, patient_id, total_amount, pdf_url, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, patient_id, total_amount, pdf_url, created_at
	`, id, b.PatientID, b.TotalAmount, b.PDFURL)

	var created Bill
	if err := row.Scan(&created.ID, &created.PatientID, &created.TotalAmount, &created.PDFURL, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert bill: %w", err)
	}
	return &created, nil
}

func (r *PgRepository) InsertDischarge(ctx context.Context, d Discharge) (*Discharge, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO discharges (id, patient_id, file_name, pdf_url, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, patient_id, file_name, pdf_url, created_at
	`, id, d.PatientID, d.FileName, d.PDFURL)

	var created Discharge
	if err := row.Scan(&created.ID, &created.PatientID, &created.FileName, &created.PDFURL, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert discharge: %w", err)
	}
	return &created, nil
}

func (r *PgRepository) ListBillsByPatient(ctx context.Context, patientID uuid.UUID) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, total_amount, pdf_url, created_at
		FROM bills
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.PatientID, &b.TotalAmount, &b.PDFURL, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListDischargesByPatient(ctx context.Context, patientID uuid.UUID) ([]Discharge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, file_name, pdf_url, created_at
		FROM discharges
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Discharge
	for rows.Next() {
		var d Discharge
		if err := rows.Scan(&d.ID, &d.PatientID, &d.FileName, &d.PDFURL, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
