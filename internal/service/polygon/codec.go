package polygon

import (
	"encoding/json"

	"Tradia/internal/domain/models"
)

func encodeBars(bars []models.Bar) ([]byte, error) {
	return json.Marshal(bars)
}

func decodeBars(b []byte) ([]models.Bar, error) {
	var bars []models.Bar
	if err := json.Unmarshal(b, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}
