package business

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/directory/internal/db"
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
)

// businessDTO is the stored document shape produced by Business.Document.
type businessDTO struct {
	dombiz.Attributes
	Owner    string       `json:"owner"`
	Media    dombiz.Media `json:"media"`
	Active   bool         `json:"active"`
	Created  string       `json:"created"`
	Modified string       `json:"modified"`
}

func toDocument(b dombiz.Business) db.Document {
	return db.Document{
		ID:       b.ID(),
		Fields:   b.Document(),
		Location: b.Location(),
		Modified: b.Modified(),
	}
}

func fromFields(id string, fields map[string]any) (dombiz.Business, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("encode business %s: %w", id, err)
	}
	var dto businessDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return dombiz.Business{}, fmt.Errorf("decode business %s: %w", id, err)
	}
	return dombiz.Reconstruct(
		id, dto.Owner, dto.Attributes, dto.Media, dto.Active,
		parseTime(dto.Created), parseTime(dto.Modified),
	), nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(dombiz.TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
