package domain

// Status enums for lifecycle entities. Deleted is terminal everywhere and
// records carrying it are invisible to normal reads.

type ProgramStatus string

const (
	ProgramDraft   ProgramStatus = "Draft"
	ProgramActive  ProgramStatus = "Active"
	ProgramDeleted ProgramStatus = "Deleted"
)

type LevelStatus string

const (
	LevelActive  LevelStatus = "Active"
	LevelDeleted LevelStatus = "Deleted"
)

type PersistentTaskStatus string

const (
	PersistentTaskActive  PersistentTaskStatus = "Active"
	PersistentTaskClosed  PersistentTaskStatus = "Closed"
	PersistentTaskDeleted PersistentTaskStatus = "Deleted"
)

type SubmissionStatus string

const (
	SubmissionOpen     SubmissionStatus = "Open"
	SubmissionAccepted SubmissionStatus = "Accepted"
	SubmissionRejected SubmissionStatus = "Rejected"
	SubmissionDeleted  SubmissionStatus = "Deleted"
)

type SuggestionStatus string

const (
	SuggestionOpen       SuggestionStatus = "Open"
	SuggestionNotPlanned SuggestionStatus = "NotPlanned"
	SuggestionAccepted   SuggestionStatus = "Accepted"
	SuggestionDeleted    SuggestionStatus = "Deleted"
)

type Colony struct {
	ColonyAddress      string   `json:"colony_address"`
	ColonyName         string   `json:"colony_name"`
	DisplayName        string   `json:"display_name,omitempty"`
	AvatarHash         string   `json:"avatar_hash,omitempty"`
	FounderAddress     string   `json:"founder_address"`
	NativeTokenAddress string   `json:"native_token_address,omitempty"`
	TaskIDs            []string `json:"task_ids"`
	TokenAddresses     []string `json:"token_addresses"`
	CreatedAt          string   `json:"created_at" format:"date-time"`
}

type Domain struct {
	ID                string `json:"id"`
	ColonyAddress     string `json:"colony_address"`
	EthDomainID       int    `json:"eth_domain_id"`
	EthParentDomainID *int   `json:"eth_parent_domain_id,omitempty"`
	Name              string `json:"name"`
	CreatedAt         string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID                    string       `json:"id"`
	ColonyAddress         string       `json:"colony_address"`
	CreatorAddress        string       `json:"creator_address"`
	AssignedWorkerAddress *string      `json:"assigned_worker_address,omitempty"`
	EthDomainID           int          `json:"eth_domain_id"`
	EthPotID              *int         `json:"eth_pot_id,omitempty"`
	EthSkillID            *int         `json:"eth_skill_id,omitempty"`
	Title                 string       `json:"title,omitempty"`
	Description           string       `json:"description,omitempty"`
	DueDate               *string      `json:"due_date,omitempty" format:"date-time"`
	WorkInviteAddresses   []string     `json:"work_invite_addresses"`
	WorkRequestAddresses  []string     `json:"work_request_addresses"`
	Payouts               []TaskPayout `json:"payouts"`
	CancelledAt           *string      `json:"cancelled_at,omitempty" format:"date-time"`
	FinalizedAt           *string      `json:"finalized_at,omitempty" format:"date-time"`
	CreatedAt             string       `json:"created_at" format:"date-time"`
}

type TaskPayout struct {
	TokenAddress string `json:"token_address"`
	Amount       string `json:"amount"`
}

type User struct {
	WalletAddress   string   `json:"wallet_address"`
	Username        string   `json:"username,omitempty"`
	DisplayName     string   `json:"display_name,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Location        string   `json:"location,omitempty"`
	Website         string   `json:"website,omitempty"`
	AvatarHash      string   `json:"avatar_hash,omitempty"`
	ColonyAddresses []string `json:"colony_addresses"`
	TaskIDs         []string `json:"task_ids"`
	TokenAddresses  []string `json:"token_addresses"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
}

type Token struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Decimals  int    `json:"decimals"`
	IconHash  string `json:"icon_hash,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Program struct {
	ID                    string        `json:"id"`
	ColonyAddress         string        `json:"colony_address"`
	CreatorAddress        string        `json:"creator_address"`
	Title                 string        `json:"title,omitempty"`
	Description           string        `json:"description,omitempty"`
	LevelIDs              []string      `json:"level_ids"`
	EnrolledUserAddresses []string      `json:"enrolled_user_addresses"`
	Status                ProgramStatus `json:"status" enum:"Draft,Active,Deleted"`
	CreatedAt             string        `json:"created_at" format:"date-time"`
}

type Level struct {
	ID               string      `json:"id"`
	ProgramID        string      `json:"program_id"`
	CreatorAddress   string      `json:"creator_address"`
	Title            string      `json:"title,omitempty"`
	Description      string      `json:"description,omitempty"`
	AchievementHash  string      `json:"achievement_hash,omitempty"`
	NumRequiredSteps *int        `json:"num_required_steps,omitempty"`
	StepIDs          []string    `json:"step_ids"`
	CompletedBy      []string    `json:"completed_by"`
	Status           LevelStatus `json:"status" enum:"Active,Deleted"`
	CreatedAt        string      `json:"created_at" format:"date-time"`
}

type PersistentTask struct {
	ID             string               `json:"id"`
	ColonyAddress  string               `json:"colony_address"`
	CreatorAddress string               `json:"creator_address"`
	EthDomainID    *int                 `json:"eth_domain_id,omitempty"`
	EthSkillID     *int                 `json:"eth_skill_id,omitempty"`
	Title          string               `json:"title,omitempty"`
	Description    string               `json:"description,omitempty"`
	Payouts        []TaskPayout         `json:"payouts"`
	Status         PersistentTaskStatus `json:"status" enum:"Active,Closed,Deleted"`
	CreatedAt      string               `json:"created_at" format:"date-time"`
}

type Submission struct {
	ID               string           `json:"id"`
	CreatorAddress   string           `json:"creator_address"`
	PersistentTaskID string           `json:"persistent_task_id"`
	Submission       string           `json:"submission"`
	Status           SubmissionStatus `json:"status" enum:"Open,Accepted,Rejected,Deleted"`
	StatusChangedAt  *string          `json:"status_changed_at,omitempty" format:"date-time"`
	CreatedAt        string           `json:"created_at" format:"date-time"`
}

// ProgramSubmission pairs an open submission with the level its step belongs to.
type ProgramSubmission struct {
	ID         string     `json:"id"`
	LevelID    string     `json:"level_id"`
	Submission Submission `json:"submission"`
}

type Suggestion struct {
	ID             string           `json:"id"`
	ColonyAddress  string           `json:"colony_address"`
	CreatorAddress string           `json:"creator_address"`
	EthDomainID    int              `json:"eth_domain_id"`
	TaskID         *string          `json:"task_id,omitempty"`
	Title          string           `json:"title"`
	Status         SuggestionStatus `json:"status" enum:"Open,NotPlanned,Accepted,Deleted"`
	Upvotes        []string         `json:"upvotes"`
	CreatedAt      string           `json:"created_at" format:"date-time"`
}
