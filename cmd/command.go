// Copyright 2025 ACLGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aclgate",
	Short: "ACLGate - S3 ACL authorization gateway",
	Long: `ACLGate is an S3-compatible authorization gateway. It evaluates S3
access control lists in front of an object store that has no native
notion of per-resource grants, storing ACL documents as resource
metadata.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
