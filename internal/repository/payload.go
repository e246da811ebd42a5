package repository

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/taxtracker/ledger/shared/models"
)

func encodePayload(p models.Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

// decodePayload keeps numbers as json.Number so a stored payload reads back exactly as written.
func decodePayload(raw sql.NullString) (models.Payload, error) {
	if !raw.Valid {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw.String)))
	dec.UseNumber()
	var p models.Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("failed to decode payload: trailing data after JSON object")
	}
	return p, nil
}
