package main

import (
	"context"
	"fmt"

	"github.com/kindredkids/compass/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	var usr struct {
		ID string `json:"id"`
	}
	err := cli.store.From("users").Select("id").Eq("email", email).Single().Get(ctx, &usr)
	if err != nil {
		return err
	}

	if err := cli.store.AdminUpdateUserPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	fmt.Printf("password reset for %s\n", email)
	return nil
}
