package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/trailer-forge/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in audience profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := profile.NewStaticStore()
		for _, id := range profile.IDs() {
			p, err := store.Get(context.Background(), id)
			if err != nil {
				return err
			}
			marker := "  "
			if id == profile.DefaultProfileID {
				marker = "* "
			}
			fmt.Printf("%s%-12s %s\n", marker, id, p.Description)
		}
		fmt.Println("\n* default")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
