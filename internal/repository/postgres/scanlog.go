package postgres

import (
	"context"

	"github.com/tiketbaris/gate-go/internal/domain"
)

// ScanLogRepo is the append-only history of redemption attempts, admitted or
// not. It carries no validation semantics; the tickets table is the sole
// authority on admission, so log rows are always written outside any
// transaction, straight on the pool.
type ScanLogRepo struct {
	pool Pool
}

func (r *ScanLogRepo) Append(ctx context.Context, rec domain.ScanRecord) error {
	const op = "postgres.ScanLogRepo.Append"

	_, err := r.pool.Exec(ctx,
		`INSERT INTO scan_log(code, event_id, scanner_id, outcome)
       	 VALUES ($1, $2, $3, $4)`,
		rec.Code, rec.EventID, rec.ScannerID, rec.Outcome,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListByCode returns the attempt history for a code, oldest first.
func (r *ScanLogRepo) ListByCode(ctx context.Context, code string) ([]domain.ScanRecord, error) {
	const op = "postgres.ScanLogRepo.ListByCode"

	rows, err := r.pool.Query(ctx,
		`SELECT id, code, event_id, scanner_id, outcome, at
		 FROM scan_log
		 WHERE code = $1
		 ORDER BY at, id`,
		code,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(
			&rec.ID, &rec.Code, &rec.EventID, &rec.ScannerID, &rec.Outcome, &rec.At,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
