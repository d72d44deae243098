package chi

import (
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	healthuc "github.com/kailas-cloud/directory/internal/usecase/health"
)

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

type imageResponse struct {
	Key      string         `json:"key"`
	Business map[string]any `json:"business"`
}

// businessResponse renders a business the same way list results do.
func businessResponse(b dombiz.Business) map[string]any {
	out := b.Document()
	out["id"] = b.ID()
	return out
}
