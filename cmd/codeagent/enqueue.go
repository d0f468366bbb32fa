package main

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/queue"
	"github.com/Cyclone1070/codeagent/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "enqueue --project <id> <prompt>",
		Short: "Record a request and publish a run trigger for the workers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prompt := strings.Join(args, " ")

			db, err := store.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			rdb, err := queue.Dial(ctx, a.cfg.Queue.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			trigger, err := saveUserMessage(ctx, db, projectID, prompt)
			if err != nil {
				return err
			}

			q := queue.New(rdb, a.cfg.Queue.Stream, a.cfg.Queue.Group)
			if err := q.EnsureGroup(ctx); err != nil {
				return err
			}
			msgID, err := q.Publish(ctx, &queue.Event{ID: trigger.RunID, ProjectID: projectID, Value: prompt})
			if err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{"run_id": trigger.RunID, "message_id": msgID}).Info("trigger published")
			fmt.Fprintln(cmd.OutOrStdout(), trigger.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project the run belongs to")
	cmd.MarkFlagRequired("project")
	return cmd
}
