package reporter

import (
	"context"

	"github.com/tandau/firewatch-go/model"
)

// IService delivers a fire record plus its annotated image to the site API.
// Callers must never invoke Send on the capture path; it blocks on network
// I/O and may retry.
type IService interface {
	Send(ctx context.Context, fire model.Fire) error
}
