package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one immutable record of the append-only log. IDs are UUIDv7 so
// lexicographic order is creation order and CreatedAt is carried inside the
// id itself.
type Event struct {
	ID               string    `json:"id"`
	Type             EventType `json:"type"`
	CreatedAt        string    `json:"created_at" format:"date-time"`
	InitiatorAddress string    `json:"initiator_address"`
	SourceID         string    `json:"source_id"`
	SourceType       string    `json:"source_type"`
	Context          Context   `json:"context"`
}

// NewID returns a fresh time-ordered event id.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	return id.String(), nil
}

// IDTime extracts the creation timestamp embedded in a UUIDv7 id.
func IDTime(id string) (time.Time, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event id %q: %w", id, err)
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), nil
}

// DecodeContext resolves a stored payload to its concrete variant. The
// mapping is total over the known types; anything else indicates a writer bug
// upstream and fails loudly. The type tag is stamped into the payload so
// downstream dispatch never needs the envelope.
func DecodeContext(t EventType, raw []byte) (Context, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	decode := func(into Context) (Context, error) {
		// into is a *T; unmarshal then return the value with the tag set.
		if err := json.Unmarshal(raw, into); err != nil {
			return nil, fmt.Errorf("decode %s context: %w", t, err)
		}
		return into, nil
	}
	var (
		c   Context
		err error
	)
	switch t {
	case TypeAcceptLevelTaskSubmission:
		c, err = decode(&AcceptLevelTaskSubmissionEvent{Type: t})
	case TypeAssignWorker:
		c, err = decode(&AssignWorkerEvent{Type: t})
	case TypeCancelTask:
		c, err = decode(&CancelTaskEvent{Type: t})
	case TypeCreateDomain:
		c, err = decode(&CreateDomainEvent{Type: t})
	case TypeCreateLevelTaskSubmission:
		c, err = decode(&CreateLevelTaskSubmissionEvent{Type: t})
	case TypeCreateTask:
		c, err = decode(&CreateTaskEvent{Type: t})
	case TypeCreateWorkRequest:
		c, err = decode(&CreateWorkRequestEvent{Type: t})
	case TypeEnrollUserInProgram:
		c, err = decode(&EnrollUserInProgramEvent{Type: t})
	case TypeFinalizeTask:
		c, err = decode(&FinalizeTaskEvent{Type: t})
	case TypeNewUser:
		c, err = decode(&NewUserEvent{Type: t})
	case TypeRemoveTaskPayout:
		c, err = decode(&RemoveTaskPayoutEvent{Type: t})
	case TypeSendWorkInvite:
		c, err = decode(&SendWorkInviteEvent{Type: t})
	case TypeSetTaskDescription:
		c, err = decode(&SetTaskDescriptionEvent{Type: t})
	case TypeSetTaskDomain:
		c, err = decode(&SetTaskDomainEvent{Type: t})
	case TypeSetTaskDueDate:
		c, err = decode(&SetTaskDueDateEvent{Type: t})
	case TypeSetTaskPayout:
		c, err = decode(&SetTaskPayoutEvent{Type: t})
	case TypeSetTaskPending:
		c, err = decode(&SetTaskPendingEvent{Type: t})
	case TypeSetTaskSkill:
		c, err = decode(&SetTaskSkillEvent{Type: t})
	case TypeRemoveTaskSkill:
		c, err = decode(&RemoveTaskSkillEvent{Type: t})
	case TypeSetTaskTitle:
		c, err = decode(&SetTaskTitleEvent{Type: t})
	case TypeTaskMessage:
		c, err = decode(&TaskMessageEvent{Type: t})
	case TypeUnassignWorker:
		c, err = decode(&UnassignWorkerEvent{Type: t})
	case TypeUnlockNextLevel:
		c, err = decode(&UnlockNextLevelEvent{Type: t})
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, err
	}
	return stampType(c, t), nil
}

// stampType forces the duplicated tag after unmarshal, so stored rows that
// predate tag duplication still resolve with a correct tag.
func stampType(c Context, t EventType) Context {
	switch v := c.(type) {
	case *AcceptLevelTaskSubmissionEvent:
		v.Type = t
		return *v
	case *AssignWorkerEvent:
		v.Type = t
		return *v
	case *CancelTaskEvent:
		v.Type = t
		return *v
	case *CreateDomainEvent:
		v.Type = t
		return *v
	case *CreateLevelTaskSubmissionEvent:
		v.Type = t
		return *v
	case *CreateTaskEvent:
		v.Type = t
		return *v
	case *CreateWorkRequestEvent:
		v.Type = t
		return *v
	case *EnrollUserInProgramEvent:
		v.Type = t
		return *v
	case *FinalizeTaskEvent:
		v.Type = t
		return *v
	case *NewUserEvent:
		v.Type = t
		return *v
	case *RemoveTaskPayoutEvent:
		v.Type = t
		return *v
	case *SendWorkInviteEvent:
		v.Type = t
		return *v
	case *SetTaskDescriptionEvent:
		v.Type = t
		return *v
	case *SetTaskDomainEvent:
		v.Type = t
		return *v
	case *SetTaskDueDateEvent:
		v.Type = t
		return *v
	case *SetTaskPayoutEvent:
		v.Type = t
		return *v
	case *SetTaskPendingEvent:
		v.Type = t
		return *v
	case *SetTaskSkillEvent:
		v.Type = t
		return *v
	case *RemoveTaskSkillEvent:
		v.Type = t
		return *v
	case *SetTaskTitleEvent:
		v.Type = t
		return *v
	case *TaskMessageEvent:
		v.Type = t
		return *v
	case *UnassignWorkerEvent:
		v.Type = t
		return *v
	case *UnlockNextLevelEvent:
		v.Type = t
		return *v
	}
	return c
}

// EncodeContext serializes a context payload for storage. The duplicated
// type tag travels with the payload.
func EncodeContext(c Context) ([]byte, error) {
	c = stampValueType(c)
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s context: %w", c.EventType(), err)
	}
	return data, nil
}

func stampValueType(c Context) Context {
	// Round-trip through the pointer stamping so callers may pass zero tags.
	switch v := c.(type) {
	case AcceptLevelTaskSubmissionEvent:
		return stampType(&v, v.EventType())
	case AssignWorkerEvent:
		return stampType(&v, v.EventType())
	case CancelTaskEvent:
		return stampType(&v, v.EventType())
	case CreateDomainEvent:
		return stampType(&v, v.EventType())
	case CreateLevelTaskSubmissionEvent:
		return stampType(&v, v.EventType())
	case CreateTaskEvent:
		return stampType(&v, v.EventType())
	case CreateWorkRequestEvent:
		return stampType(&v, v.EventType())
	case EnrollUserInProgramEvent:
		return stampType(&v, v.EventType())
	case FinalizeTaskEvent:
		return stampType(&v, v.EventType())
	case NewUserEvent:
		return stampType(&v, v.EventType())
	case RemoveTaskPayoutEvent:
		return stampType(&v, v.EventType())
	case SendWorkInviteEvent:
		return stampType(&v, v.EventType())
	case SetTaskDescriptionEvent:
		return stampType(&v, v.EventType())
	case SetTaskDomainEvent:
		return stampType(&v, v.EventType())
	case SetTaskDueDateEvent:
		return stampType(&v, v.EventType())
	case SetTaskPayoutEvent:
		return stampType(&v, v.EventType())
	case SetTaskPendingEvent:
		return stampType(&v, v.EventType())
	case SetTaskSkillEvent:
		return stampType(&v, v.EventType())
	case RemoveTaskSkillEvent:
		return stampType(&v, v.EventType())
	case SetTaskTitleEvent:
		return stampType(&v, v.EventType())
	case TaskMessageEvent:
		return stampType(&v, v.EventType())
	case UnassignWorkerEvent:
		return stampType(&v, v.EventType())
	case UnlockNextLevelEvent:
		return stampType(&v, v.EventType())
	}
	return c
}
