package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/tmplbind/internal/db"
	"github.com/opencode-ai/tmplbind/internal/models"
)

var (
	eventsType     string
	eventsTemplate string
	eventsSince    time.Duration
	eventsLimit    int
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by event type (template.compiled, template.skipped, template.failed, generate.completed)")
	eventsCmd.Flags().StringVar(&eventsTemplate, "template", "", "filter by template name")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only events newer than this duration")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum number of events")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the generator event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		query := db.EventQuery{Limit: eventsLimit}
		if eventsType != "" {
			eventType := models.EventType(eventsType)
			query.Type = &eventType
		}
		if eventsTemplate != "" {
			entityType := models.EntityTypeTemplate
			query.EntityType = &entityType
			query.EntityID = &eventsTemplate
		}
		if eventsSince > 0 {
			since := time.Now().Add(-eventsSince).UTC()
			query.Since = &since
		}

		page, err := db.NewEventRepository(database).Query(cmd.Context(), query)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), page.Events)
		}
		if len(page.Events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, event := range page.Events {
			rows = append(rows, []string{
				event.Timestamp.Local().Format(time.DateTime),
				string(event.Type),
				event.EntityID,
				string(event.Payload),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"TIME", "TYPE", "ENTITY", "PAYLOAD"}, rows)
	},
}
