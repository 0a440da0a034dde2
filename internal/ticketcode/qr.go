package ticketcode

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of the generated symbol. 256px scans
// reliably from phone screens at typical gate camera distances.
const QRSize = 256

// EncodeQR renders a ticket code into a PNG QR symbol. Pure function of the
// code: no store or network access, deterministic for a given input, and the
// decoded payload is exactly the original code string.
func EncodeQR(code string) ([]byte, error) {
	const op = "ticketcode.EncodeQR"

	if code == "" {
		return nil, fmt.Errorf("%s: empty code", op)
	}

	// Medium recovery keeps symbols small; codes are short and gates rescan
	// on failure.
	png, err := qrcode.Encode(code, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return png, nil
}
