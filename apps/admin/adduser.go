package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/user"
)

var errInvalidRole = errors.New("invalid role")

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if !isRole(role) {
		return errInvalidRole
	}

	usr, err := cli.findUser(ctx, uname, email)
	exists := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	usr.Role = role
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}

func (cli *commandLine) findUser(ctx context.Context, uname, email string) (user.User, error) {
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if errors.Cause(err) == user.ErrNotFound {
		return cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	return usr, err
}

func isRole(role string) bool {
	for _, r := range user.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
