package presence

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanWatch(t *testing.T) {
	streamer := uuid.New()
	viewer := uuid.New()

	if err := CanWatch(viewer, streamer); err != nil {
		t.Fatalf("CanWatch(viewer, streamer) error = %v, want nil", err)
	}
	if err := CanWatch(streamer, streamer); err != ErrOwnSession {
		t.Fatalf("CanWatch(streamer, streamer) error = %v, want ErrOwnSession", err)
	}
	if err := CanWatch(uuid.Nil, streamer); err != nil {
		t.Fatalf("CanWatch(anonymous, streamer) error = %v, want nil", err)
	}
}
