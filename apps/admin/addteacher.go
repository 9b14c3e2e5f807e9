package main

import (
	"context"
	"time"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/user"
)

// addTeacher updates or creates a teacher account, bypassing the emailed
// verification flow. Existing accounts are reactivated.
func (cli *commandLine) addTeacher(email, name, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
