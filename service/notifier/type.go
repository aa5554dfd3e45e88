package notifier

import "context"

// IService pushes the annotated image with a caption to the alert channel.
// Independent of the reporter; a failure on one side never gates the other.
type IService interface {
	Notify(ctx context.Context, imagePath, caption string) error
}
