package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pricelens/backend/internal/domain"
)

// ReadJSON reads ingestion payloads either as a JSON array or as a stream of
// objects, one per line.
func ReadJSON(r io.Reader, d Defaults) ([]domain.ManualEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoListings
	}

	var entries []domain.ManualEntry
	if data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode listings: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		for n := 1; ; n++ {
			var e domain.ManualEntry
			err := dec.Decode(&e)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to decode listing %d: %w", n, err)
			}
			entries = append(entries, e)
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoListings
	}
	for i := range entries {
		d.apply(&entries[i])
	}
	return entries, nil
}
