package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"colonyserver/internal/domain"
	"colonyserver/internal/requestcache"
)

type Repo struct {
	DB *sql.DB
}

var (
	// ErrNotFound marks a missing (or soft-deleted, hence invisible) entity.
	ErrNotFound = errors.New("not found")
	// ErrDataIntegrity marks stored state only an upstream writer bug can
	// produce. Requests hitting it must fail and never retry.
	ErrDataIntegrity = errors.New("data integrity error")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// excludeDeleted appends the cross-cutting soft-delete predicate. Every read
// over programs, levels, persistent tasks, submissions and suggestions is
// built through here; call sites never spell the status filter themselves.
func excludeDeleted(clauses []string, args []any) ([]string, []any) {
	return append(clauses, "status != ?"), append(args, "Deleted")
}

// containsJSON matches rows whose JSON list column contains the given value.
func containsJSON(column string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", column)
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(clauses, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func unmarshalList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func unmarshalPayouts(raw string) []domain.TaskPayout {
	if raw == "" {
		return []domain.TaskPayout{}
	}
	var out []domain.TaskPayout
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []domain.TaskPayout{}
	}
	return out
}

func nullString(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

const colonyColumns = `colony_address,colony_name,display_name,avatar_hash,founder_address,native_token_address,task_ids,token_addresses,created_at`

func scanColony(scan func(dest ...any) error) (domain.Colony, error) {
	var c domain.Colony
	var displayName, avatarHash, nativeToken sql.NullString
	var taskIDs, tokenAddresses string
	err := scan(&c.ColonyAddress, &c.ColonyName, &displayName, &avatarHash, &c.FounderAddress, &nativeToken, &taskIDs, &tokenAddresses, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.DisplayName = nullString(displayName)
	c.AvatarHash = nullString(avatarHash)
	c.NativeTokenAddress = nullString(nativeToken)
	c.TaskIDs = unmarshalList(taskIDs)
	c.TokenAddresses = unmarshalList(tokenAddresses)
	return c, nil
}

func (r Repo) GetColonyByAddress(ctx context.Context, colonyAddress string) (domain.Colony, error) {
	return requestcache.Memo(ctx, "colony:"+colonyAddress, func() (domain.Colony, error) {
		row := r.DB.QueryRowContext(ctx, `SELECT `+colonyColumns+` FROM colonies WHERE colony_address=?`, colonyAddress)
		c, err := scanColony(row.Scan)
		if err == sql.ErrNoRows {
			return c, notFound("colony", colonyAddress)
		}
		return c, err
	})
}

func (r Repo) GetColoniesByAddress(ctx context.Context, colonyAddresses []string) ([]domain.Colony, error) {
	if len(colonyAddresses) == 0 {
		return []domain.Colony{}, nil
	}
	args := make([]any, len(colonyAddresses))
	for i, a := range colonyAddresses {
		args[i] = a
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+colonyColumns+` FROM colonies WHERE colony_address IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Colony
	for rows.Next() {
		c, err := scanColony(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

const taskColumns = `id,colony_address,creator_address,assigned_worker_address,eth_domain_id,eth_pot_id,eth_skill_id,title,description,due_date,work_invite_addresses,work_request_addresses,payouts,cancelled_at,finalized_at,created_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var worker, title, description, dueDate, cancelledAt, finalizedAt sql.NullString
	var potID, skillID sql.NullInt64
	var invites, requests, payouts string
	err := scan(&t.ID, &t.ColonyAddress, &t.CreatorAddress, &worker, &t.EthDomainID, &potID, &skillID,
		&title, &description, &dueDate, &invites, &requests, &payouts, &cancelledAt, &finalizedAt, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.AssignedWorkerAddress = nullStringPtr(worker)
	t.EthPotID = nullIntPtr(potID)
	t.EthSkillID = nullIntPtr(skillID)
	t.Title = nullString(title)
	t.Description = nullString(description)
	t.DueDate = nullStringPtr(dueDate)
	t.CancelledAt = nullStringPtr(cancelledAt)
	t.FinalizedAt = nullStringPtr(finalizedAt)
	t.WorkInviteAddresses = unmarshalList(invites)
	t.WorkRequestAddresses = unmarshalList(requests)
	t.Payouts = unmarshalPayouts(payouts)
	return t, nil
}

func (r Repo) GetTaskByID(ctx context.Context, taskID string) (domain.Task, error) {
	return requestcache.Memo(ctx, "task:"+taskID, func() (domain.Task, error) {
		row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, taskID)
		t, err := scanTask(row.Scan)
		if err == sql.ErrNoRows {
			return t, notFound("task", taskID)
		}
		return t, err
	})
}

func (r Repo) GetTaskByEthID(ctx context.Context, colonyAddress string, ethPotID int) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE colony_address=? AND eth_pot_id=?`, colonyAddress, ethPotID)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, notFound("task with pot id", fmt.Sprintf("%d@%s", ethPotID, colonyAddress))
	}
	return t, err
}

func (r Repo) GetTasksByID(ctx context.Context, taskIDs []string) ([]domain.Task, error) {
	if len(taskIDs) == 0 {
		return []domain.Task{}, nil
	}
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetColonyTasks(ctx context.Context, colonyAddress string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE colony_address=? ORDER BY created_at DESC, id DESC`, colonyAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTasksByEthDomainID(ctx context.Context, colonyAddress string, ethDomainID int) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE colony_address=? AND eth_domain_id=?`, colonyAddress, ethDomainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetDomainByEthID(ctx context.Context, colonyAddress string, ethDomainID int) (domain.Domain, error) {
	var d domain.Domain
	var parent sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT id,colony_address,eth_domain_id,eth_parent_domain_id,name,created_at FROM domains WHERE colony_address=? AND eth_domain_id=?`,
		colonyAddress, ethDomainID).Scan(&d.ID, &d.ColonyAddress, &d.EthDomainID, &parent, &d.Name, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, notFound("domain", fmt.Sprintf("%d@%s", ethDomainID, colonyAddress))
	}
	if err != nil {
		return d, err
	}
	d.EthParentDomainID = nullIntPtr(parent)
	return d, nil
}

func (r Repo) GetColonyDomains(ctx context.Context, colonyAddress string) ([]domain.Domain, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,colony_address,eth_domain_id,eth_parent_domain_id,name,created_at FROM domains WHERE colony_address=? ORDER BY eth_domain_id ASC`, colonyAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Domain
	for rows.Next() {
		var d domain.Domain
		var parent sql.NullInt64
		if err := rows.Scan(&d.ID, &d.ColonyAddress, &d.EthDomainID, &parent, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.EthParentDomainID = nullIntPtr(parent)
		res = append(res, d)
	}
	return res, rows.Err()
}

const userColumns = `wallet_address,username,display_name,bio,location,website,avatar_hash,colony_addresses,task_ids,token_addresses,created_at`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var username, displayName, bio, location, website, avatarHash sql.NullString
	var colonies, taskIDs, tokens string
	err := scan(&u.WalletAddress, &username, &displayName, &bio, &location, &website, &avatarHash, &colonies, &taskIDs, &tokens, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.Username = nullString(username)
	u.DisplayName = nullString(displayName)
	u.Bio = nullString(bio)
	u.Location = nullString(location)
	u.Website = nullString(website)
	u.AvatarHash = nullString(avatarHash)
	u.ColonyAddresses = unmarshalList(colonies)
	u.TaskIDs = unmarshalList(taskIDs)
	u.TokenAddresses = unmarshalList(tokens)
	return u, nil
}

func (r Repo) GetUserByAddress(ctx context.Context, walletAddress string) (domain.User, error) {
	return requestcache.Memo(ctx, "user:"+walletAddress, func() (domain.User, error) {
		row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address=?`, walletAddress)
		u, err := scanUser(row.Scan)
		if err == sql.ErrNoRows {
			return u, notFound("user", walletAddress)
		}
		return u, err
	})
}

func (r Repo) GetUsersByAddress(ctx context.Context, walletAddresses []string) ([]domain.User, error) {
	if len(walletAddresses) == 0 {
		return []domain.User{}, nil
	}
	args := make([]any, len(walletAddresses))
	for i, a := range walletAddresses {
		args[i] = a
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) GetColonySubscribedUsers(ctx context.Context, colonyAddress string) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+containsJSON("colony_addresses"), colonyAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) GetTokenByAddress(ctx context.Context, tokenAddress string) (domain.Token, error) {
	return requestcache.Memo(ctx, "token:"+tokenAddress, func() (domain.Token, error) {
		var t domain.Token
		var name, symbol, iconHash sql.NullString
		err := r.DB.QueryRowContext(ctx, `SELECT address,name,symbol,decimals,icon_hash,created_at FROM tokens WHERE address=?`, tokenAddress).
			Scan(&t.Address, &name, &symbol, &t.Decimals, &iconHash, &t.CreatedAt)
		if err == sql.ErrNoRows {
			return t, notFound("token", tokenAddress)
		}
		if err != nil {
			return t, err
		}
		t.Name = nullString(name)
		t.Symbol = nullString(symbol)
		t.IconHash = nullString(iconHash)
		return t, nil
	})
}
