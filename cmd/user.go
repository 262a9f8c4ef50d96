/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/notekeeper/apiserver/internal/db"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	adminEmail    string
	adminPassword string
)

// userCreateAdminCmd bootstraps the first administrator. Administrators
// cannot be created over HTTP.
var userCreateAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an account holding ROLE_ADMIN, or promote an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(adminEmail) == "" {
			return errors.New("--email is required")
		}
		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(
			services.FromStore(store.New(conn)),
			services.NewSQLTransactor(conn),
			nil,
		)

		user, found, err := users.FindByEmail(cmd.Context(), adminEmail)
		if err != nil {
			return err
		}
		if !found {
			if password == "" {
				return errors.New("--password or ADMIN_PASSWORD is required for a new account")
			}
			user, err = users.Register(cmd.Context(), types.User{Email: adminEmail}, password)
			if err != nil {
				return err
			}
		}

		user.Roles = append(user.Roles, types.RoleAdmin)
		user, err = users.Save(cmd.Context(), user)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is an administrator\n", user.ID, user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateAdminCmd)

	userCreateAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email of the administrator")
	userCreateAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password for a new account (defaults to $ADMIN_PASSWORD)")
}
