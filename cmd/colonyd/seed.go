package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"colonyserver/internal/engine"
	"colonyserver/internal/eventlog"
)

// Well-known fixture addresses. Stable values keep repeated seeds and local
// API exploration predictable.
const (
	seedColony  = "0xc01onyc01onyc01onyc01onyc01onyc01onyc010"
	seedFounder = "0xf0under00000000000000000000000000000001"
	seedWorker  = "0x3017ker00000000000000000000000000000002"
	seedToken   = "0x70ken0000000000000000000000000000000003"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the workspace with a demo colony",
		Long:  "Creates a demo colony with users, a task, a program with two levels, and the event history behind them. Safe for local workspaces only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return seed(ctx, e)
			})
		},
	}
}

func seed(ctx context.Context, e engine.Engine) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	taskID, err := eventlog.NewID()
	if err != nil {
		return err
	}
	programID, err := eventlog.NewID()
	if err != nil {
		return err
	}
	levelOneID, err := eventlog.NewID()
	if err != nil {
		return err
	}
	levelTwoID, err := eventlog.NewID()
	if err != nil {
		return err
	}
	stepID, err := eventlog.NewID()
	if err != nil {
		return err
	}

	exec := func(q string, args ...any) error {
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, q, args...)
		return err
	}

	_ = exec(`INSERT INTO colonies(colony_address,colony_name,display_name,founder_address,native_token_address,task_ids,token_addresses,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		seedColony, "beekeepers", "Beekeepers", seedFounder, seedToken, jsonArr(taskID), jsonArr(seedToken), now)
	_ = exec(`INSERT INTO tokens(address,name,symbol,decimals,created_at) VALUES (?,?,?,?,?)`,
		seedToken, "Honey", "HNY", 18, now)
	_ = exec(`INSERT INTO users(wallet_address,username,display_name,colony_addresses,task_ids,token_addresses,created_at)
		VALUES (?,?,?,?,?,?,?)`,
		seedFounder, "queen", "Queen Bee", jsonArr(seedColony), jsonArr(), jsonArr(seedToken), now)
	_ = exec(`INSERT INTO users(wallet_address,username,display_name,colony_addresses,task_ids,token_addresses,created_at)
		VALUES (?,?,?,?,?,?,?)`,
		seedWorker, "forager", "Forager", jsonArr(seedColony), jsonArr(taskID), jsonArr(), now)
	_ = exec(`INSERT INTO domains(id,colony_address,eth_domain_id,name,created_at) VALUES (?,?,?,?,?)`,
		"seed-domain-root", seedColony, 1, "Root", now)
	_ = exec(`INSERT INTO tasks(id,colony_address,creator_address,assigned_worker_address,eth_domain_id,title,work_invite_addresses,work_request_addresses,payouts,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		taskID, seedColony, seedFounder, seedWorker, 1, "Collect pollen", jsonArr(), jsonArr(), jsonArr(), now)
	_ = exec(`INSERT INTO programs(id,colony_address,creator_address,title,level_ids,enrolled_user_addresses,status,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		programID, seedColony, seedFounder, "Apprenticeship", jsonArr(levelOneID, levelTwoID), jsonArr(seedWorker), "Active", now)
	_ = exec(`INSERT INTO levels(id,program_id,creator_address,title,step_ids,completed_by,status,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		levelOneID, programID, seedFounder, "Larva", jsonArr(stepID), jsonArr(), "Active", now)
	_ = exec(`INSERT INTO levels(id,program_id,creator_address,title,step_ids,completed_by,status,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		levelTwoID, programID, seedFounder, "Worker", jsonArr(), jsonArr(), "Active", now)
	_ = exec(`INSERT INTO persistent_tasks(id,colony_address,creator_address,title,payouts,status,created_at)
		VALUES (?,?,?,?,?,?,?)`,
		stepID, seedColony, seedFounder, "Map the meadow", jsonArr(), "Active", now)
	if err != nil {
		return err
	}

	appends := []struct {
		initiator  string
		sourceID   string
		sourceType string
		context    eventlog.Context
		recipients []string
	}{
		{seedFounder, seedColony, "colony", eventlog.CreateDomainEvent{EthDomainID: 1, ColonyAddress: seedColony}, nil},
		{seedFounder, taskID, "task", eventlog.CreateTaskEvent{TaskID: taskID, EthDomainID: 1, ColonyAddress: seedColony}, []string{seedWorker}},
		{seedFounder, taskID, "task", eventlog.SetTaskTitleEvent{TaskID: taskID, Title: "Collect pollen", ColonyAddress: seedColony}, []string{seedWorker}},
		{seedFounder, taskID, "task", eventlog.AssignWorkerEvent{TaskID: taskID, WorkerAddress: seedWorker, ColonyAddress: seedColony}, []string{seedWorker}},
		{seedWorker, programID, "program", eventlog.EnrollUserInProgramEvent{ProgramID: programID}, []string{seedFounder}},
	}
	for _, a := range appends {
		if _, err := e.Events.Append(ctx, tx, a.initiator, a.sourceID, a.sourceType, a.context, a.recipients); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("seeded colony %s (task %s, program %s)\n", seedColony, taskID, programID)
	return nil
}

func jsonArr(items ...string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
