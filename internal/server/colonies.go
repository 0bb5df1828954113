package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"colonyserver/internal/domain"
	"colonyserver/internal/engine"
	"colonyserver/internal/eventlog"
)

func registerColonies(api huma.API, e engine.Engine) {
	type colonyPath struct {
		Address string `path:"address"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-colony",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}",
		Summary:     "Get colony",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body domain.Colony `json:"body"`
	}, error) {
		c, err := e.Repo.GetColonyByAddress(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Colony `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-domains",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/domains",
		Summary:     "List colony domains",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []domain.Domain `json:"body"`
	}, error) {
		ds, err := e.Repo.GetColonyDomains(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Domain `json:"body"`
		}{Body: ds}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-colony-domain",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/domains/{eth_domain_id}",
		Summary:     "Get domain by on-chain id",
	}, func(ctx context.Context, input *struct {
		Address     string `path:"address"`
		EthDomainID int    `path:"eth_domain_id"`
	}) (*struct {
		Body domain.Domain `json:"body"`
	}, error) {
		d, err := e.Repo.GetDomainByEthID(ctx, input.Address, input.EthDomainID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Domain `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-domain-tasks",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/domains/{eth_domain_id}/tasks",
		Summary:     "List tasks in a domain",
	}, func(ctx context.Context, input *struct {
		Address     string `path:"address"`
		EthDomainID int    `path:"eth_domain_id"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		ts, err := e.Repo.GetTasksByEthDomainID(ctx, input.Address, input.EthDomainID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: ts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-by-pot",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/pots/{eth_pot_id}/task",
		Summary:     "Get task by on-chain funding pot id",
	}, func(ctx context.Context, input *struct {
		Address  string `path:"address"`
		EthPotID int    `path:"eth_pot_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.Repo.GetTaskByEthID(ctx, input.Address, input.EthPotID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-tasks",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/tasks",
		Summary:     "List colony tasks with history",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []engine.ExpandedTask `json:"body"`
	}, error) {
		tasks, err := e.ColonyTasksWithEvents(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.ExpandedTask `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-programs",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/programs",
		Summary:     "List colony programs",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []domain.Program `json:"body"`
	}, error) {
		ps, err := e.Repo.GetColonyPrograms(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Program `json:"body"`
		}{Body: ps}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-suggestions",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/suggestions",
		Summary:     "List colony suggestions",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []domain.Suggestion `json:"body"`
	}, error) {
		ss, err := e.Repo.GetColonySuggestions(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Suggestion `json:"body"`
		}{Body: ss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-subscribers",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/subscribers",
		Summary:     "List users subscribed to the colony",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		us, err := e.Repo.GetColonySubscribedUsers(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: us}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colony-events",
		Method:      http.MethodGet,
		Path:        "/colonies/{address}/events",
		Summary:     "List colony events",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body []eventlog.Event `json:"body"`
	}, error) {
		evs, err := e.Repo.ColonyEvents(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []eventlog.Event `json:"body"`
		}{Body: evs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-token",
		Method:      http.MethodGet,
		Path:        "/tokens/{address}",
		Summary:     "Get token",
	}, func(ctx context.Context, input *colonyPath) (*struct {
		Body domain.Token `json:"body"`
	}, error) {
		t, err := e.Repo.GetTokenByAddress(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Token `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-suggestion",
		Method:      http.MethodGet,
		Path:        "/suggestions/{id}",
		Summary:     "Get suggestion",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Suggestion `json:"body"`
	}, error) {
		s, err := e.Repo.GetSuggestionByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Suggestion `json:"body"`
		}{Body: s}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	type taskPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task with worker and history",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body engine.ExpandedTask `json:"body"`
	}, error) {
		t, err := e.GetExpandedTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ExpandedTask `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-events",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/events",
		Summary:     "List task events",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body []eventlog.Event `json:"body"`
	}, error) {
		evs, err := e.Repo.TaskEvents(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []eventlog.Event `json:"body"`
		}{Body: evs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-work-requests",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/work-requests",
		Summary:     "List users who requested to work on the task",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		t, err := e.Repo.GetTaskByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		us, err := e.Repo.GetUsersByAddress(ctx, t.WorkRequestAddresses)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: us}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-work-invites",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/work-invites",
		Summary:     "List users invited to work on the task",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		t, err := e.Repo.GetTaskByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		us, err := e.Repo.GetUsersByAddress(ctx, t.WorkInviteAddresses)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: us}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get event",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body eventlog.Event `json:"body"`
	}, error) {
		ev, err := e.Repo.GetEventByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body eventlog.Event `json:"body"`
		}{Body: ev}, nil
	})
}
