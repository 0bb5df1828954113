package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"colonyserver/internal/domain"
	"colonyserver/internal/engine"
	"colonyserver/internal/eventlog"
)

func registerPrograms(api huma.API, e engine.Engine) {
	type programPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-program",
		Method:      http.MethodGet,
		Path:        "/programs/{id}",
		Summary:     "Get program",
	}, func(ctx context.Context, input *programPath) (*struct {
		Body domain.Program `json:"body"`
	}, error) {
		p, err := e.Repo.GetProgramByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Program `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-program-levels",
		Method:      http.MethodGet,
		Path:        "/programs/{id}/levels",
		Summary:     "List program levels",
	}, func(ctx context.Context, input *programPath) (*struct {
		Body []domain.Level `json:"body"`
	}, error) {
		p, err := e.Repo.GetProgramByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		ls, err := e.Repo.GetLevelsByID(ctx, p.LevelIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Level `json:"body"`
		}{Body: ls}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-program-submissions",
		Method:      http.MethodGet,
		Path:        "/programs/{id}/submissions",
		Summary:     "List open submissions across program levels",
	}, func(ctx context.Context, input *programPath) (*struct {
		Body []domain.ProgramSubmission `json:"body"`
	}, error) {
		ss, err := e.Repo.GetProgramSubmissions(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ProgramSubmission `json:"body"`
		}{Body: ss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-program-events",
		Method:      http.MethodGet,
		Path:        "/programs/{id}/events",
		Summary:     "List events recorded against the program",
	}, func(ctx context.Context, input *programPath) (*struct {
		Body []eventlog.Event `json:"body"`
	}, error) {
		evs, err := e.Repo.SourceEvents(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []eventlog.Event `json:"body"`
		}{Body: evs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-submissible-levels",
		Method:      http.MethodGet,
		Path:        "/programs/{id}/submissible-levels",
		Summary:     "Level ids the caller may submit to",
	}, func(ctx context.Context, input *programPath) (*struct {
		Body []string `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ids, err := e.SubmissibleLevels(ctx, input.ID, address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []string `json:"body"`
		}{Body: ids}, nil
	})
}

func registerLevels(api huma.API, e engine.Engine) {
	type levelPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-level",
		Method:      http.MethodGet,
		Path:        "/levels/{id}",
		Summary:     "Get level",
	}, func(ctx context.Context, input *levelPath) (*struct {
		Body domain.Level `json:"body"`
	}, error) {
		l, err := e.Repo.GetLevelByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Level `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-level-steps",
		Method:      http.MethodGet,
		Path:        "/levels/{id}/steps",
		Summary:     "List level step tasks",
	}, func(ctx context.Context, input *levelPath) (*struct {
		Body []domain.PersistentTask `json:"body"`
	}, error) {
		ts, err := e.Repo.GetLevelTasks(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.PersistentTask `json:"body"`
		}{Body: ts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-level-unlocked",
		Method:      http.MethodGet,
		Path:        "/levels/{id}/unlocked",
		Summary:     "Whether the caller may submit to this level",
	}, func(ctx context.Context, input *levelPath) (*struct {
		Body struct {
			Unlocked bool `json:"unlocked"`
		} `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		unlocked, err := e.LevelUnlocked(ctx, input.ID, address)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Unlocked bool `json:"unlocked"`
			} `json:"body"`
		}{}
		resp.Body.Unlocked = unlocked
		return resp, nil
	})
}

func registerPersistentTasks(api huma.API, e engine.Engine) {
	type persistentTaskPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-persistent-task",
		Method:      http.MethodGet,
		Path:        "/persistent-tasks/{id}",
		Summary:     "Get persistent task",
	}, func(ctx context.Context, input *persistentTaskPath) (*struct {
		Body domain.PersistentTask `json:"body"`
	}, error) {
		t, err := e.Repo.GetPersistentTaskByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PersistentTask `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-submissions",
		Method:      http.MethodGet,
		Path:        "/persistent-tasks/{id}/submissions",
		Summary:     "List submissions for a persistent task",
	}, func(ctx context.Context, input *persistentTaskPath) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		ss, err := e.Repo.GetTaskSubmissions(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Submission `json:"body"`
		}{Body: ss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-own-task-submission",
		Method:      http.MethodGet,
		Path:        "/persistent-tasks/{id}/submissions/mine",
		Summary:     "Get the caller's submission for a persistent task",
	}, func(ctx context.Context, input *persistentTaskPath) (*struct {
		Body *domain.Submission `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.Repo.GetUserSubmissionForTask(ctx, input.ID, address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body *domain.Submission `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission",
		Method:      http.MethodGet,
		Path:        "/submissions/{id}",
		Summary:     "Get submission",
	}, func(ctx context.Context, input *persistentTaskPath) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		s, err := e.Repo.GetSubmissionByID(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})
}
