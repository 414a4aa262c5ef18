package session

import (
	"time"

	"github.com/decktable/decktable-go/internal/room"
)

// PromptWindow is how long the UI keeps an effect-request prompt on screen.
// The request itself never expires: a victim can still answer an old request,
// and the requester decides whether the answer is still interesting.
const PromptWindow = 15 * time.Second

// RequestState tracks a pending cross-player effect request on the victim's
// side.
type RequestState string

const (
	RequestPending  RequestState = "pending"
	RequestAccepted RequestState = "accepted"
	RequestDeclined RequestState = "declined"
	RequestApplied  RequestState = "applied"
)

// PendingRequest is one staged cross-player effect request awaiting this
// client's answer.
type PendingRequest struct {
	// Event is the original request event (deck-share-request or
	// hand-share-request) as it appeared in the room log.
	Event room.RevealEvent

	State      RequestState
	ReceivedAt time.Time
}

// RequesterID returns the id of the player who issued the request.
func (r *PendingRequest) RequesterID() string { return r.Event.PlayerID }

// RequesterName returns the display name of the requesting player.
func (r *PendingRequest) RequesterName() string { return r.Event.PlayerName }

// PromptExpired reports whether the UI prompt window has elapsed. An expired
// prompt leaves the request answerable; it only stops being pushed at the
// user.
func (r *PendingRequest) PromptExpired(now time.Time) bool {
	return now.Sub(r.ReceivedAt) > PromptWindow
}

// RequestTracker holds the cross-player effect requests addressed to this
// client, keyed by requester id and request tag. A newer request from the
// same requester with the same tag replaces the older one.
type RequestTracker struct {
	requests map[requestKey]*PendingRequest
}

type requestKey struct {
	requesterID string
	action      room.ActionType
}

// NewRequestTracker returns an empty tracker.
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{requests: make(map[requestKey]*PendingRequest)}
}

// Stage records an incoming request event and returns its tracker entry.
func (t *RequestTracker) Stage(ev room.RevealEvent, now time.Time) *PendingRequest {
	req := &PendingRequest{Event: ev, State: RequestPending, ReceivedAt: now}
	t.requests[requestKey{ev.PlayerID, ev.Action}] = req
	return req
}

// Get looks up the pending request from a requester for a given tag.
func (t *RequestTracker) Get(requesterID string, action room.ActionType) (*PendingRequest, bool) {
	req, ok := t.requests[requestKey{requesterID, action}]
	return req, ok
}

// Pending lists all requests still awaiting an answer.
func (t *RequestTracker) Pending() []*PendingRequest {
	var out []*PendingRequest
	for _, req := range t.requests {
		if req.State == RequestPending {
			out = append(out, req)
		}
	}
	return out
}

// Resolve transitions a pending request to accepted or declined. It returns
// the request, or ErrNoPendingRequest when nothing from that requester with
// that tag is awaiting an answer.
func (t *RequestTracker) Resolve(requesterID string, action room.ActionType, accepted bool) (*PendingRequest, error) {
	req, ok := t.requests[requestKey{requesterID, action}]
	if !ok || req.State != RequestPending {
		return nil, ErrNoPendingRequest
	}
	if accepted {
		req.State = RequestAccepted
	} else {
		req.State = RequestDeclined
	}
	return req, nil
}

// MarkApplied moves an accepted request to its terminal state once the
// payload snapshot has been published.
func (t *RequestTracker) MarkApplied(req *PendingRequest) {
	req.State = RequestApplied
	delete(t.requests, requestKey{req.Event.PlayerID, req.Event.Action})
}
