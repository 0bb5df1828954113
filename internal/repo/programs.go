package repo

import (
	"context"
	"database/sql"

	"colonyserver/internal/domain"
	"colonyserver/internal/requestcache"
)

const programColumns = `id,colony_address,creator_address,title,description,level_ids,enrolled_user_addresses,status,created_at`

func scanProgram(scan func(dest ...any) error) (domain.Program, error) {
	var p domain.Program
	var title, description sql.NullString
	var levelIDs, enrolled string
	err := scan(&p.ID, &p.ColonyAddress, &p.CreatorAddress, &title, &description, &levelIDs, &enrolled, &p.Status, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Title = nullString(title)
	p.Description = nullString(description)
	p.LevelIDs = unmarshalList(levelIDs)
	p.EnrolledUserAddresses = unmarshalList(enrolled)
	return p, nil
}

func (r Repo) GetProgramByID(ctx context.Context, id string) (domain.Program, error) {
	return requestcache.Memo(ctx, "program:"+id, func() (domain.Program, error) {
		clauses, args := excludeDeleted([]string{"id=?"}, []any{id})
		row := r.DB.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs `+whereClause(clauses), args...)
		p, err := scanProgram(row.Scan)
		if err == sql.ErrNoRows {
			return p, notFound("program", id)
		}
		return p, err
	})
}

func (r Repo) GetColonyPrograms(ctx context.Context, colonyAddress string) ([]domain.Program, error) {
	clauses, args := excludeDeleted([]string{"colony_address=?"}, []any{colonyAddress})
	rows, err := r.DB.QueryContext(ctx, `SELECT `+programColumns+` FROM programs `+whereClause(clauses)+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

const levelColumns = `id,program_id,creator_address,title,description,achievement_hash,num_required_steps,step_ids,completed_by,status,created_at`

func scanLevel(scan func(dest ...any) error) (domain.Level, error) {
	var l domain.Level
	var title, description, achievement sql.NullString
	var numRequired sql.NullInt64
	var stepIDs, completedBy string
	err := scan(&l.ID, &l.ProgramID, &l.CreatorAddress, &title, &description, &achievement, &numRequired, &stepIDs, &completedBy, &l.Status, &l.CreatedAt)
	if err != nil {
		return l, err
	}
	l.Title = nullString(title)
	l.Description = nullString(description)
	l.AchievementHash = nullString(achievement)
	l.NumRequiredSteps = nullIntPtr(numRequired)
	l.StepIDs = unmarshalList(stepIDs)
	l.CompletedBy = unmarshalList(completedBy)
	return l, nil
}

func (r Repo) GetLevelByID(ctx context.Context, id string) (domain.Level, error) {
	return requestcache.Memo(ctx, "level:"+id, func() (domain.Level, error) {
		clauses, args := excludeDeleted([]string{"id=?"}, []any{id})
		row := r.DB.QueryRowContext(ctx, `SELECT `+levelColumns+` FROM levels `+whereClause(clauses), args...)
		l, err := scanLevel(row.Scan)
		if err == sql.ErrNoRows {
			return l, notFound("level", id)
		}
		return l, err
	})
}

func (r Repo) GetLevelsByID(ctx context.Context, ids []string) ([]domain.Level, error) {
	if len(ids) == 0 {
		return []domain.Level{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	clauses, args := excludeDeleted([]string{"id IN (" + placeholders(len(args)) + ")"}, args)
	rows, err := r.DB.QueryContext(ctx, `SELECT `+levelColumns+` FROM levels `+whereClause(clauses), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Level
	for rows.Next() {
		l, err := scanLevel(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// CompletedLevelIDs returns the distinct ids of a program's levels the user
// has a completion entry for. Dangling level references simply do not match.
func (r Repo) CompletedLevelIDs(ctx context.Context, programID, userAddress string) ([]string, error) {
	clauses := []string{"program_id=?", containsJSON("completed_by")}
	args := []any{programID, userAddress}
	clauses, args = excludeDeleted(clauses, args)
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT id FROM levels `+whereClause(clauses), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UserCompletedLevels returns levels completed by the user within a colony.
// Two steps: completed levels first, then their programs to filter by colony.
func (r Repo) UserCompletedLevels(ctx context.Context, userAddress, colonyAddress string) ([]domain.Level, error) {
	clauses, args := excludeDeleted([]string{containsJSON("completed_by")}, []any{userAddress})
	rows, err := r.DB.QueryContext(ctx, `SELECT `+levelColumns+` FROM levels `+whereClause(clauses), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []domain.Level
	for rows.Next() {
		l, err := scanLevel(rows.Scan)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return []domain.Level{}, nil
	}
	programIDs := make([]string, 0, len(levels))
	seen := map[string]bool{}
	for _, l := range levels {
		if !seen[l.ProgramID] {
			seen[l.ProgramID] = true
			programIDs = append(programIDs, l.ProgramID)
		}
	}
	programs, err := r.getProgramsByID(ctx, programIDs)
	if err != nil {
		return nil, err
	}
	inColony := map[string]bool{}
	for _, p := range programs {
		if p.ColonyAddress == colonyAddress {
			inColony[p.ID] = true
		}
	}
	res := []domain.Level{}
	for _, l := range levels {
		if inColony[l.ProgramID] {
			res = append(res, l)
		}
	}
	return res, nil
}

func (r Repo) getProgramsByID(ctx context.Context, ids []string) ([]domain.Program, error) {
	if len(ids) == 0 {
		return []domain.Program{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	clauses, args := excludeDeleted([]string{"id IN (" + placeholders(len(args)) + ")"}, args)
	rows, err := r.DB.QueryContext(ctx, `SELECT `+programColumns+` FROM programs `+whereClause(clauses), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

const persistentTaskColumns = `id,colony_address,creator_address,eth_domain_id,eth_skill_id,title,description,payouts,status,created_at`

func scanPersistentTask(scan func(dest ...any) error) (domain.PersistentTask, error) {
	var t domain.PersistentTask
	var title, description sql.NullString
	var domainID, skillID sql.NullInt64
	var payouts string
	err := scan(&t.ID, &t.ColonyAddress, &t.CreatorAddress, &domainID, &skillID, &title, &description, &payouts, &t.Status, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.EthDomainID = nullIntPtr(domainID)
	t.EthSkillID = nullIntPtr(skillID)
	t.Title = nullString(title)
	t.Description = nullString(description)
	t.Payouts = unmarshalPayouts(payouts)
	return t, nil
}

func (r Repo) GetPersistentTaskByID(ctx context.Context, id string) (domain.PersistentTask, error) {
	clauses, args := excludeDeleted([]string{"id=?"}, []any{id})
	row := r.DB.QueryRowContext(ctx, `SELECT `+persistentTaskColumns+` FROM persistent_tasks `+whereClause(clauses), args...)
	t, err := scanPersistentTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, notFound("persistent task", id)
	}
	return t, err
}

// GetLevelTasks returns the level's steps in no particular order; callers
// that need step order use the level's step id list.
func (r Repo) GetLevelTasks(ctx context.Context, levelID string) ([]domain.PersistentTask, error) {
	level, err := r.GetLevelByID(ctx, levelID)
	if err != nil {
		return nil, err
	}
	return r.getPersistentTasksByID(ctx, level.StepIDs)
}

func (r Repo) getPersistentTasksByID(ctx context.Context, ids []string) ([]domain.PersistentTask, error) {
	if len(ids) == 0 {
		return []domain.PersistentTask{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	clauses, args := excludeDeleted([]string{"id IN (" + placeholders(len(args)) + ")"}, args)
	rows, err := r.DB.QueryContext(ctx, `SELECT `+persistentTaskColumns+` FROM persistent_tasks `+whereClause(clauses), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PersistentTask
	for rows.Next() {
		t, err := scanPersistentTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const submissionColumns = `id,creator_address,persistent_task_id,submission,status,status_changed_at,created_at`

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var s domain.Submission
	var statusChanged sql.NullString
	err := scan(&s.ID, &s.CreatorAddress, &s.PersistentTaskID, &s.Submission, &s.Status, &statusChanged, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.StatusChangedAt = nullStringPtr(statusChanged)
	return s, nil
}

func (r Repo) GetSubmissionByID(ctx context.Context, id string) (domain.Submission, error) {
	clauses, args := excludeDeleted([]string{"id=?"}, []any{id})
	row := r.DB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions `+whereClause(clauses), args...)
	s, err := scanSubmission(row.Scan)
	if err == sql.ErrNoRows {
		return s, notFound("submission", id)
	}
	return s, err
}

func (r Repo) GetTaskSubmissions(ctx context.Context, persistentTaskID string) ([]domain.Submission, error) {
	clauses, args := excludeDeleted([]string{"persistent_task_id=?"}, []any{persistentTaskID})
	rows, err := r.DB.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions `+whereClause(clauses)+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// GetUserSubmissionForTask returns nil when the user has not submitted yet;
// that is the expected common case, not an error.
func (r Repo) GetUserSubmissionForTask(ctx context.Context, persistentTaskID, creatorAddress string) (*domain.Submission, error) {
	clauses := []string{"persistent_task_id=?", "creator_address=?"}
	args := []any{persistentTaskID, creatorAddress}
	clauses, args = excludeDeleted(clauses, args)
	row := r.DB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions `+whereClause(clauses), args...)
	s, err := scanSubmission(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetProgramSubmissions collects every open submission across a program's
// levels. Explicit multi-step composition: levels, then their steps, then
// the open submissions for those steps, joined back to the owning level.
func (r Repo) GetProgramSubmissions(ctx context.Context, programID string) ([]domain.ProgramSubmission, error) {
	program, err := r.GetProgramByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	levels, err := r.GetLevelsByID(ctx, program.LevelIDs)
	if err != nil {
		return nil, err
	}
	levelByStep := map[string]string{}
	var stepIDs []string
	for _, level := range levels {
		for _, stepID := range level.StepIDs {
			if _, ok := levelByStep[stepID]; !ok {
				levelByStep[stepID] = level.ID
				stepIDs = append(stepIDs, stepID)
			}
		}
	}
	if len(stepIDs) == 0 {
		return []domain.ProgramSubmission{}, nil
	}
	args := make([]any, 0, len(stepIDs)+2)
	for _, id := range stepIDs {
		args = append(args, id)
	}
	clauses := []string{"persistent_task_id IN (" + placeholders(len(stepIDs)) + ")", "status=?"}
	args = append(args, string(domain.SubmissionOpen))
	clauses, args = excludeDeleted(clauses, args)
	rows, err := r.DB.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions `+whereClause(clauses)+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ProgramSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, domain.ProgramSubmission{
			ID:         s.ID,
			LevelID:    levelByStep[s.PersistentTaskID],
			Submission: s,
		})
	}
	return res, rows.Err()
}

const suggestionColumns = `id,colony_address,creator_address,eth_domain_id,task_id,title,status,upvotes,created_at`

func scanSuggestion(scan func(dest ...any) error) (domain.Suggestion, error) {
	var s domain.Suggestion
	var taskID sql.NullString
	var upvotes string
	err := scan(&s.ID, &s.ColonyAddress, &s.CreatorAddress, &s.EthDomainID, &taskID, &s.Title, &s.Status, &upvotes, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.TaskID = nullStringPtr(taskID)
	s.Upvotes = unmarshalList(upvotes)
	return s, nil
}

func (r Repo) GetSuggestionByID(ctx context.Context, id string) (domain.Suggestion, error) {
	clauses, args := excludeDeleted([]string{"id=?"}, []any{id})
	row := r.DB.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions `+whereClause(clauses), args...)
	s, err := scanSuggestion(row.Scan)
	if err == sql.ErrNoRows {
		return s, notFound("suggestion", id)
	}
	return s, err
}

func (r Repo) GetColonySuggestions(ctx context.Context, colonyAddress string) ([]domain.Suggestion, error) {
	clauses, args := excludeDeleted([]string{"colony_address=?"}, []any{colonyAddress})
	rows, err := r.DB.QueryContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions `+whereClause(clauses)+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
