package main

import (
	"context"
	"fmt"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
)

func (cli *commandLine) addChurch(branch, location string) error {
	ctx := context.Background()

	var church struct {
		ID string `json:"id"`
	}
	err := cli.store.From("churches").Single().Insert(ctx, map[string]interface{}{
		"name":        "Kindred Kids",
		"branch_name": core.CleanString(branch),
		"location":    core.CleanString(location),
	}, &church)
	if err != nil {
		return err
	}
	fmt.Printf("church created: %s\n", church.ID)
	return nil
}

// addAdmin provisions a pre-confirmed identity and its profile row so the
// admin can log in straight away.
func (cli *commandLine) addAdmin(email, name, churchID, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	res, err := cli.store.AdminCreateUser(ctx, email, pwd, map[string]interface{}{
		"full_name": name,
		"role":      profile.RoleAdmin,
		"church_id": churchID,
	})
	if err != nil {
		return err
	}
	if res.User == nil {
		return fmt.Errorf("identity provider returned no user for %s", email)
	}

	err = cli.store.From("users").Insert(ctx, map[string]interface{}{
		"id":        res.User.ID,
		"full_name": name,
		"email":     email,
		"role":      profile.RoleAdmin,
		"church_id": churchID,
	}, nil)
	if err != nil {
		return err
	}
	fmt.Printf("admin created: %s\n", res.User.ID)
	return nil
}
