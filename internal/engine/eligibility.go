package engine

import (
	"context"
	"errors"
	"fmt"

	"colonyserver/internal/repo"
)

// SubmissibleLevels computes which of a program's levels the user may submit
// work against: every level already completed plus the first incomplete one,
// in program order. Unenrolled users get an empty list. A program with no
// levels, or a missing program behind a live reference, is stored-state
// corruption rather than a caller mistake.
func (e Engine) SubmissibleLevels(ctx context.Context, programID, userAddress string) ([]string, error) {
	program, err := e.Repo.GetProgramByID(ctx, programID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, dataIntegrity(fmt.Errorf("program %q referenced but absent", programID))
	}
	if err != nil {
		return nil, err
	}
	enrolled := false
	for _, addr := range program.EnrolledUserAddresses {
		if addr == userAddress {
			enrolled = true
			break
		}
	}
	if !enrolled {
		return []string{}, nil
	}
	if len(program.LevelIDs) == 0 {
		return nil, dataIntegrity(fmt.Errorf("program %q has no levels", programID))
	}
	completedIDs, err := e.Repo.CompletedLevelIDs(ctx, programID, userAddress)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	// Completed levels plus the first incomplete one, in program order.
	// Everything past that frontier stays locked; when all levels are
	// complete there is no frontier to add.
	res := make([]string, 0, len(completedIDs)+1)
	frontier := false
	for _, id := range program.LevelIDs {
		switch {
		case completed[id]:
			res = append(res, id)
		case !frontier:
			res = append(res, id)
			frontier = true
		}
	}
	return res, nil
}

// LevelUnlocked reports whether the level is currently submissible for the
// user within its program.
func (e Engine) LevelUnlocked(ctx context.Context, levelID, userAddress string) (bool, error) {
	level, err := e.Repo.GetLevelByID(ctx, levelID)
	if err != nil {
		return false, err
	}
	ids, err := e.SubmissibleLevels(ctx, level.ProgramID, userAddress)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == levelID {
			return true, nil
		}
	}
	return false, nil
}
