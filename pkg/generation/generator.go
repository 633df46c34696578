package generation

//go:generate mockgen -source=generator.go -destination=generator_mock.go -package=generation

import (
	"context"

	"ai-interior-design-be/pkg/replicate"
)

// ImageGenerator is the slice of the provider client the engine depends on.
// *replicate.Client satisfies it.
type ImageGenerator interface {
	Submit(ctx context.Context, sourceImageURL, prompt, callbackURL string) (*replicate.Prediction, error)
	FetchStatus(ctx context.Context, predictionID string) (*replicate.Prediction, error)
}

var _ ImageGenerator = (*replicate.Client)(nil)
