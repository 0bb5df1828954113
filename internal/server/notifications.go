package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"colonyserver/internal/domain"
	"colonyserver/internal/engine"
)

func registerUsers(api huma.API, e engine.Engine) {
	type userPath struct {
		Address string `path:"address"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{address}",
		Summary:     "Get user profile, minimal if unregistered",
	}, func(ctx context.Context, input *userPath) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.UserOrMinimal(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-colonies",
		Method:      http.MethodGet,
		Path:        "/users/{address}/colonies",
		Summary:     "List colonies the user subscribed to",
	}, func(ctx context.Context, input *userPath) (*struct {
		Body []domain.Colony `json:"body"`
	}, error) {
		u, err := e.UserOrMinimal(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		cs, err := e.Repo.GetColoniesByAddress(ctx, u.ColonyAddresses)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Colony `json:"body"`
		}{Body: cs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-tasks",
		Method:      http.MethodGet,
		Path:        "/users/{address}/tasks",
		Summary:     "List tasks on the user's profile",
	}, func(ctx context.Context, input *userPath) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		u, err := e.UserOrMinimal(ctx, input.Address)
		if err != nil {
			return nil, handleError(err)
		}
		ts, err := e.Repo.GetTasksByID(ctx, u.TaskIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: ts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-completed-levels",
		Method:      http.MethodGet,
		Path:        "/users/{address}/completed-levels",
		Summary:     "List levels the user completed in a colony",
	}, func(ctx context.Context, input *struct {
		Address       string `path:"address"`
		ColonyAddress string `query:"colony_address" required:"true"`
	}) (*struct {
		Body []domain.Level `json:"body"`
	}, error) {
		ls, err := e.Repo.UserCompletedLevels(ctx, input.Address, input.ColonyAddress)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Level `json:"body"`
		}{Body: ls}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications",
	}, func(ctx context.Context, input *struct {
		Read string `query:"read" enum:"true,false" doc:"Filter by read state; omit for all"`
	}) (*struct {
		Body []engine.Notification `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var read *bool
		switch input.Read {
		case "true":
			v := true
			read = &v
		case "false":
			v := false
			read = &v
		}
		ns, err := e.UserNotifications(ctx, address, read)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.Notification `json:"body"`
		}{Body: ns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-notification-read",
		Method:      http.MethodPost,
		Path:        "/notifications/{id}/read",
		Summary:     "Mark one notification read",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body map[string]bool `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.MarkNotificationRead(ctx, input.ID, address); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]bool `json:"body"`
		}{Body: map[string]bool{"ok": true}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-all-notifications-read",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark all of the caller's notifications read",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]bool `json:"body"`
	}, error) {
		address, authErr := callerAddress(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.MarkAllNotificationsRead(ctx, address); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]bool `json:"body"`
		}{Body: map[string]bool{"ok": true}}, nil
	})
}
