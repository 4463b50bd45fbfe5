package extract

import "context"

// Image is an inline image attachment (photographed receipt or an
// asset-distribution screenshot).
type Image struct {
	MIMEType string
	Data     []byte
}

// Completer wraps the external text-and-vision completion service.
// Implementations return the model's output parsed into a generic JSON
// object; the Engine never trusts its fields beyond the schema boundary.
// This interface enables mocking the service in tests.
type Completer interface {
	Complete(ctx context.Context, prompt string, img *Image) (map[string]interface{}, error)

	// Reply returns a free-text completion, used only to paraphrase
	// already-computed data for display, never to produce ledger data.
	Reply(ctx context.Context, prompt string) (string, error)
}
