package protocol

// Participant is the roster entry as it travels on the wire. Media
// handles are local-only and never serialized.
type Participant struct {
	ID     string `msgpack:"id"`
	Name   string `msgpack:"name"`
	IsHost bool   `msgpack:"isHost"`
}

// LeaveReason says why a participant left the roster.
type LeaveReason string

const (
	ReasonLeft   LeaveReason = "left"
	ReasonKicked LeaveReason = "kicked"
)

// RejectReason says why a call request was refused.
type RejectReason string

const (
	RejectBusy     RejectReason = "busy"
	RejectDeclined RejectReason = "declined"
)

// EndReason is attached to call-ended. Empty means an ordinary hang-up.
type EndReason string

const (
	EndHangUp           EndReason = ""
	EndMediaUnavailable EndReason = "media-unavailable"
)

// Chat carries one chat line.
type Chat struct {
	ID         string `msgpack:"id"`
	SenderID   string `msgpack:"senderId"`
	SenderName string `msgpack:"senderName"`
	Text       string `msgpack:"text"`
}

// UserJoined announces a participant admitted by the host.
type UserJoined struct {
	Participant Participant `msgpack:"participant"`
}

// UserLeft announces a participant removed from the roster.
type UserLeft struct {
	ID     string      `msgpack:"id"`
	Name   string      `msgpack:"name"`
	Reason LeaveReason `msgpack:"reason"`
}

// AllParticipants is the host's full roster, sent to a newly admitted guest.
type AllParticipants struct {
	Participants []Participant `msgpack:"participants"`
}

// NameTaken rejects a join whose name collides with the roster.
type NameTaken struct {
	Name string `msgpack:"name"`
}

// Kick tells the recipient it was removed by a host.
type Kick struct {
	By string `msgpack:"by"`
}

// PromoteHost grants the host flag to TargetID.
type PromoteHost struct {
	TargetID     string `msgpack:"targetId"`
	PromoterName string `msgpack:"promoterName"`
}

type CallRequest struct {
	CallerID   string `msgpack:"callerId"`
	CallerName string `msgpack:"callerName"`
}

type CallAccepted struct {
	CalleeID string `msgpack:"calleeId"`
}

type CallRejected struct {
	Reason RejectReason `msgpack:"reason"`
}

type CallEnded struct {
	FromID string    `msgpack:"fromId"`
	Reason EndReason `msgpack:"reason,omitempty"`
}

func (Chat) Kind() Kind            { return KindChat }
func (UserJoined) Kind() Kind      { return KindUserJoined }
func (UserLeft) Kind() Kind        { return KindUserLeft }
func (AllParticipants) Kind() Kind { return KindAllParticipants }
func (NameTaken) Kind() Kind       { return KindNameTaken }
func (Kick) Kind() Kind            { return KindKick }
func (PromoteHost) Kind() Kind     { return KindPromoteHost }
func (CallRequest) Kind() Kind     { return KindCallRequest }
func (CallAccepted) Kind() Kind    { return KindCallAccepted }
func (CallRejected) Kind() Kind    { return KindCallRejected }
func (CallEnded) Kind() Kind       { return KindCallEnded }

func (Chat) sealed()            {}
func (UserJoined) sealed()      {}
func (UserLeft) sealed()        {}
func (AllParticipants) sealed() {}
func (NameTaken) sealed()       {}
func (Kick) sealed()            {}
func (PromoteHost) sealed()     {}
func (CallRequest) sealed()     {}
func (CallAccepted) sealed()    {}
func (CallRejected) sealed()    {}
func (CallEnded) sealed()       {}
