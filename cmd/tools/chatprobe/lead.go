package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/tgl-chat/backend/internal/service/lead"
)

var (
	leadName    string
	leadEmail   string
	leadPhone   string
	leadMessage string
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Submit a quote request to the contact API",
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := lead.NewDraft(leadMessage)
		draft.Name = leadName
		draft.Email = leadEmail
		draft.Phone = leadPhone

		client := lead.NewClient(apiBase, nil, logger.Named("lead"))
		if err := client.Submit(cmd.Context(), draft); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "lead submitted")
		return nil
	},
}

func init() {
	leadCmd.Flags().StringVar(&leadName, "name", "", "contact name")
	leadCmd.Flags().StringVar(&leadEmail, "email", "", "contact email")
	leadCmd.Flags().StringVar(&leadPhone, "phone", "", "contact phone")
	leadCmd.Flags().StringVar(&leadMessage, "message", "", "request details")
	_ = leadCmd.MarkFlagRequired("name")
	_ = leadCmd.MarkFlagRequired("email")
	_ = leadCmd.MarkFlagRequired("phone")
}
