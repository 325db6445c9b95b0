package cli

import (
	"context"
	"errors"
	"fmt"
)

type menuAction int

const (
	actionSwitch menuAction = iota
	actionList
	actionCreate
	actionEdit
	actionShow
	actionDelete
	actionExit
)

// runInteractive shows the main menu until the user picks an action that
// ends the session. Listing returns to the menu; everything else exits.
func (a *app) runInteractive(ctx context.Context) error {
	for {
		action, err := a.mainMenu()
		if err != nil {
			if errors.Is(err, ErrPromptCancelled) {
				return nil
			}
			return err
		}
		if action == actionExit {
			a.printer.Info("Goodbye!")
			return nil
		}

		done, err := a.runAction(ctx, action)
		switch {
		case errors.Is(err, ErrPromptCancelled):
			continue
		case errors.Is(err, ErrFailed):
			// Already reported.
			return err
		case err != nil:
			a.printer.Error(fmt.Sprintf("Error: %v", err))
			continue
		}
		if done {
			return nil
		}
	}
}

func (a *app) mainMenu() (menuAction, error) {
	status := "no profile active"
	if current := a.manager().ActiveProfile(); current != "" {
		status = "current: " + current
	}
	items := []string{
		actionSwitch: fmt.Sprintf("Switch profile (%s)", status),
		actionList:   "List all profiles",
		actionCreate: "Create new profile",
		actionEdit:   "Edit profile",
		actionShow:   "Show profile content",
		actionDelete: "Delete profile",
		actionExit:   "Exit",
	}
	idx, _, err := a.prompter.Select("What would you like to do?", items, "")
	if err != nil {
		return actionExit, err
	}
	return menuAction(idx), nil
}

func (a *app) runAction(ctx context.Context, action menuAction) (bool, error) {
	switch action {
	case actionList:
		return false, a.printProfiles()
	case actionSwitch:
		return true, a.interactiveSwitch(ctx)
	case actionCreate:
		return true, a.interactiveCreate()
	case actionEdit:
		name, ok, err := a.pickProfile("Select profile to edit", "No profiles available to edit", false)
		if err != nil || !ok {
			return true, err
		}
		return true, a.printer.Report(a.manager().EditProfile(ctx, name))
	case actionShow:
		name, ok, err := a.pickProfile("Select profile to show", "No profiles available to show", false)
		if err != nil || !ok {
			return true, err
		}
		a.printer.Bold(fmt.Sprintf("Content of profile '%s':", name))
		return true, a.showProfile(name)
	case actionDelete:
		name, ok, err := a.pickProfile("Select profile to delete", "No profiles available for deletion", true)
		if err != nil || !ok {
			return true, err
		}
		return true, a.deleteWithConfirm(name)
	}
	return false, nil
}

func (a *app) interactiveSwitch(ctx context.Context) error {
	infos, res := a.manager().ListProfiles()
	if !res.Success {
		return a.printer.Report(res)
	}
	if len(infos) == 0 {
		a.printer.Warning("No profiles available to switch to.")
		return nil
	}
	name, ok, err := a.pickProfile("Select profile to switch to", "No other profiles available to switch to.", true)
	if err != nil || !ok {
		return err
	}
	return a.printer.Report(a.manager().SwitchProfile(ctx, name))
}

func (a *app) interactiveCreate() error {
	input, err := a.prompter.Prompt("Enter profile name", func(input string) error {
		_, res := a.manager().NormalizeName(input)
		return res.Err
	})
	if err != nil {
		return err
	}
	name, res := a.manager().NormalizeName(input)
	if !res.Success {
		return a.printer.Report(res)
	}
	fromLive, err := a.prompter.Confirm("Copy current hosts file content?", false)
	if err != nil {
		return err
	}
	return a.printer.Report(a.manager().CreateProfile(name, fromLive))
}

// pickProfile asks the user to choose a profile. With skipActive the active
// profile is not offered. ok is false when there was nothing to choose from.
func (a *app) pickProfile(label, emptyMessage string, skipActive bool) (string, bool, error) {
	infos, res := a.manager().ListProfiles()
	if !res.Success {
		return "", false, a.printer.Report(res)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if skipActive && info.IsCurrent {
			continue
		}
		names = append(names, info.Name)
	}
	if len(names) == 0 {
		a.printer.Warning(emptyMessage)
		return "", false, nil
	}
	_, name, err := a.prompter.Select(label, names, "")
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// deleteWithConfirm checks the profile can be deleted, asks the user and
// deletes it on a yes.
func (a *app) deleteWithConfirm(name string) error {
	res := a.manager().DeleteProfile(name, false)
	if !res.RequiresConfirmation {
		return a.printer.Report(res)
	}
	ok, err := a.prompter.Confirm(res.Message, false)
	if err != nil && !errors.Is(err, ErrPromptCancelled) {
		return err
	}
	if !ok {
		a.printer.Info("Deletion cancelled.")
		return nil
	}
	return a.printer.Report(a.manager().DeleteProfile(name, true))
}
