package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	isNew := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		isNew = true
		usr = user.User{
			Email:     email,
			Role:      user.RoleStaff,
			CreatedAt: now,
		}
	}

	usr.FullName = name
	usr.IsActive = true
	usr.UpdatedAt = now
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
