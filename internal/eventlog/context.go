package eventlog

import "colonyserver/internal/domain"

// EventType discriminates the context payload attached to an event. The
// stored context shape is fully determined by the type; decoding an unknown
// type is a data-integrity failure, never a silent default.
type EventType string

const (
	TypeAcceptLevelTaskSubmission EventType = "AcceptLevelTaskSubmission"
	TypeAssignWorker              EventType = "AssignWorker"
	TypeCancelTask                EventType = "CancelTask"
	TypeCreateDomain              EventType = "CreateDomain"
	TypeCreateLevelTaskSubmission EventType = "CreateLevelTaskSubmission"
	TypeCreateTask                EventType = "CreateTask"
	TypeCreateWorkRequest         EventType = "CreateWorkRequest"
	TypeEnrollUserInProgram       EventType = "EnrollUserInProgram"
	TypeFinalizeTask              EventType = "FinalizeTask"
	TypeNewUser                   EventType = "NewUser"
	TypeRemoveTaskPayout          EventType = "RemoveTaskPayout"
	TypeSendWorkInvite            EventType = "SendWorkInvite"
	TypeSetTaskDescription        EventType = "SetTaskDescription"
	TypeSetTaskDomain             EventType = "SetTaskDomain"
	TypeSetTaskDueDate            EventType = "SetTaskDueDate"
	TypeSetTaskPayout             EventType = "SetTaskPayout"
	TypeSetTaskPending            EventType = "SetTaskPending"
	TypeSetTaskSkill              EventType = "SetTaskSkill"
	TypeRemoveTaskSkill           EventType = "RemoveTaskSkill"
	TypeSetTaskTitle              EventType = "SetTaskTitle"
	TypeTaskMessage               EventType = "TaskMessage"
	TypeUnassignWorker            EventType = "UnassignWorker"
	TypeUnlockNextLevel           EventType = "UnlockNextLevel"
)

// Types lists every known event type.
func Types() []EventType {
	return []EventType{
		TypeAcceptLevelTaskSubmission,
		TypeAssignWorker,
		TypeCancelTask,
		TypeCreateDomain,
		TypeCreateLevelTaskSubmission,
		TypeCreateTask,
		TypeCreateWorkRequest,
		TypeEnrollUserInProgram,
		TypeFinalizeTask,
		TypeNewUser,
		TypeRemoveTaskPayout,
		TypeSendWorkInvite,
		TypeSetTaskDescription,
		TypeSetTaskDomain,
		TypeSetTaskDueDate,
		TypeSetTaskPayout,
		TypeSetTaskPending,
		TypeSetTaskSkill,
		TypeRemoveTaskSkill,
		TypeSetTaskTitle,
		TypeTaskMessage,
		TypeUnassignWorker,
		TypeUnlockNextLevel,
	}
}

// Context is the closed set of event payload variants. Every variant carries
// its own type tag so consumers can dispatch without the event envelope.
type Context interface {
	EventType() EventType
}

// TaskEvent is implemented by contexts that reference a task.
type TaskEvent interface {
	Context
	EventTaskID() string
}

// ColonyEvent is implemented by contexts scoped to a colony without a task.
type ColonyEvent interface {
	Context
	EventColonyAddress() string
}

// Context payloads are stored as JSON written by the chain listener, so the
// field keys keep the listener's camelCase wire format.

type AssignWorkerEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	WorkerAddress string    `json:"workerAddress"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type UnassignWorkerEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	WorkerAddress string    `json:"workerAddress"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type CancelTaskEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type CreateDomainEvent struct {
	Type          EventType `json:"type"`
	EthDomainID   int       `json:"ethDomainId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type CreateTaskEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	EthDomainID   int       `json:"ethDomainId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type CreateWorkRequestEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type FinalizeTaskEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskPendingEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	TxHash        string    `json:"txHash"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type RemoveTaskPayoutEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	TokenAddress  string    `json:"tokenAddress"`
	Amount        string    `json:"amount"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SendWorkInviteEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	WorkerAddress string    `json:"workerAddress"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskDescriptionEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	Description   string    `json:"description"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskDomainEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	EthDomainID   int       `json:"ethDomainId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskDueDateEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	DueDate       *string   `json:"dueDate"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskPayoutEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	TokenAddress  string    `json:"tokenAddress"`
	Amount        string    `json:"amount"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskSkillEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	EthSkillID    int       `json:"ethSkillId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type RemoveTaskSkillEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	EthSkillID    int       `json:"ethSkillId"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type SetTaskTitleEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	Title         string    `json:"title"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type TaskMessageEvent struct {
	Type          EventType `json:"type"`
	TaskID        string    `json:"taskId"`
	Message       string    `json:"message"`
	ColonyAddress string    `json:"colonyAddress,omitempty"`
}

type NewUserEvent struct {
	Type EventType `json:"type"`
}

type AcceptLevelTaskSubmissionEvent struct {
	Type             EventType           `json:"type"`
	AcceptedBy       string              `json:"acceptedBy"`
	LevelID          string              `json:"levelId"`
	Payouts          []domain.TaskPayout `json:"payouts"`
	PersistentTaskID string              `json:"persistentTaskId"`
	ProgramID        string              `json:"programId"`
	SubmissionID     string              `json:"submissionId"`
}

type CreateLevelTaskSubmissionEvent struct {
	Type             EventType `json:"type"`
	ProgramID        string    `json:"programId"`
	PersistentTaskID string    `json:"persistentTaskId"`
	LevelID          string    `json:"levelId"`
	SubmissionID     string    `json:"submissionId"`
}

type EnrollUserInProgramEvent struct {
	Type      EventType `json:"type"`
	ProgramID string    `json:"programId"`
}

type UnlockNextLevelEvent struct {
	Type             EventType `json:"type"`
	LevelID          string    `json:"levelId"`
	NextLevelID      *string   `json:"nextLevelId"`
	PersistentTaskID string    `json:"persistentTaskId"`
	ProgramID        string    `json:"programId"`
	SubmissionID     string    `json:"submissionId"`
}

func (c AssignWorkerEvent) EventType() EventType              { return TypeAssignWorker }
func (c UnassignWorkerEvent) EventType() EventType            { return TypeUnassignWorker }
func (c CancelTaskEvent) EventType() EventType                { return TypeCancelTask }
func (c CreateDomainEvent) EventType() EventType              { return TypeCreateDomain }
func (c CreateTaskEvent) EventType() EventType                { return TypeCreateTask }
func (c CreateWorkRequestEvent) EventType() EventType         { return TypeCreateWorkRequest }
func (c FinalizeTaskEvent) EventType() EventType              { return TypeFinalizeTask }
func (c SetTaskPendingEvent) EventType() EventType            { return TypeSetTaskPending }
func (c RemoveTaskPayoutEvent) EventType() EventType          { return TypeRemoveTaskPayout }
func (c SendWorkInviteEvent) EventType() EventType            { return TypeSendWorkInvite }
func (c SetTaskDescriptionEvent) EventType() EventType        { return TypeSetTaskDescription }
func (c SetTaskDomainEvent) EventType() EventType             { return TypeSetTaskDomain }
func (c SetTaskDueDateEvent) EventType() EventType            { return TypeSetTaskDueDate }
func (c SetTaskPayoutEvent) EventType() EventType             { return TypeSetTaskPayout }
func (c SetTaskSkillEvent) EventType() EventType              { return TypeSetTaskSkill }
func (c RemoveTaskSkillEvent) EventType() EventType           { return TypeRemoveTaskSkill }
func (c SetTaskTitleEvent) EventType() EventType              { return TypeSetTaskTitle }
func (c TaskMessageEvent) EventType() EventType               { return TypeTaskMessage }
func (c NewUserEvent) EventType() EventType                   { return TypeNewUser }
func (c AcceptLevelTaskSubmissionEvent) EventType() EventType { return TypeAcceptLevelTaskSubmission }
func (c CreateLevelTaskSubmissionEvent) EventType() EventType { return TypeCreateLevelTaskSubmission }
func (c EnrollUserInProgramEvent) EventType() EventType       { return TypeEnrollUserInProgram }
func (c UnlockNextLevelEvent) EventType() EventType           { return TypeUnlockNextLevel }

func (c AssignWorkerEvent) EventTaskID() string       { return c.TaskID }
func (c UnassignWorkerEvent) EventTaskID() string     { return c.TaskID }
func (c CancelTaskEvent) EventTaskID() string         { return c.TaskID }
func (c CreateTaskEvent) EventTaskID() string         { return c.TaskID }
func (c CreateWorkRequestEvent) EventTaskID() string  { return c.TaskID }
func (c FinalizeTaskEvent) EventTaskID() string       { return c.TaskID }
func (c SetTaskPendingEvent) EventTaskID() string     { return c.TaskID }
func (c RemoveTaskPayoutEvent) EventTaskID() string   { return c.TaskID }
func (c SendWorkInviteEvent) EventTaskID() string     { return c.TaskID }
func (c SetTaskDescriptionEvent) EventTaskID() string { return c.TaskID }
func (c SetTaskDomainEvent) EventTaskID() string      { return c.TaskID }
func (c SetTaskDueDateEvent) EventTaskID() string     { return c.TaskID }
func (c SetTaskPayoutEvent) EventTaskID() string      { return c.TaskID }
func (c SetTaskSkillEvent) EventTaskID() string       { return c.TaskID }
func (c RemoveTaskSkillEvent) EventTaskID() string    { return c.TaskID }
func (c SetTaskTitleEvent) EventTaskID() string       { return c.TaskID }
func (c TaskMessageEvent) EventTaskID() string        { return c.TaskID }

func (c CreateDomainEvent) EventColonyAddress() string { return c.ColonyAddress }
