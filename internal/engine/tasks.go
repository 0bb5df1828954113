package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"colonyserver/internal/domain"
	"colonyserver/internal/eventlog"
)

// ExpandedTask is a task joined with the records clients always want next
// to it: the assigned worker's profile and the task's event history.
type ExpandedTask struct {
	Task   domain.Task      `json:"task"`
	Worker *domain.User     `json:"worker,omitempty"`
	Events []eventlog.Event `json:"events"`
}

// GetExpandedTask fetches the task, then its worker profile and history
// concurrently. An assigned address that never registered degrades to a
// minimal profile rather than failing the whole read.
func (e Engine) GetExpandedTask(ctx context.Context, taskID string) (ExpandedTask, error) {
	task, err := e.Repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return ExpandedTask{}, err
	}
	res := ExpandedTask{Task: task}
	g, gctx := errgroup.WithContext(ctx)
	if task.AssignedWorkerAddress != nil {
		addr := *task.AssignedWorkerAddress
		g.Go(func() error {
			u, err := e.UserOrMinimal(gctx, addr)
			if err != nil {
				return err
			}
			res.Worker = &u
			return nil
		})
	}
	g.Go(func() error {
		events, err := e.Repo.TaskEvents(gctx, taskID)
		if err != nil {
			return err
		}
		res.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return ExpandedTask{}, err
	}
	if res.Events == nil {
		res.Events = []eventlog.Event{}
	}
	return res, nil
}

// taskExpandLimit caps concurrent per-task history fetches when expanding a
// whole colony's task list.
const taskExpandLimit = 8

// ColonyTasksWithEvents lists a colony's tasks each with its history,
// fetching histories concurrently. Task order is preserved.
func (e Engine) ColonyTasksWithEvents(ctx context.Context, colonyAddress string) ([]ExpandedTask, error) {
	tasks, err := e.Repo.GetColonyTasks(ctx, colonyAddress)
	if err != nil {
		return nil, err
	}
	res := make([]ExpandedTask, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(taskExpandLimit)
	for i, task := range tasks {
		res[i] = ExpandedTask{Task: task, Events: []eventlog.Event{}}
		g.Go(func() error {
			events, err := e.Repo.TaskEvents(gctx, task.ID)
			if err != nil {
				return err
			}
			if events != nil {
				res[i].Events = events
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
