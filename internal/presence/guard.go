package presence

import (
	"errors"

	"github.com/google/uuid"
)

// ErrOwnSession is returned when a streamer tries to watch their own
// broadcast.
var ErrOwnSession = errors.New("you are already live in this session")

// CanWatch reports whether a viewer may open the watch page for the session
// owned by channelUserID. A missing identity (uuid.Nil) is not a match and
// watching proceeds.
func CanWatch(viewerID, channelUserID uuid.UUID) error {
	if viewerID != uuid.Nil && viewerID == channelUserID {
		return ErrOwnSession
	}
	return nil
}
