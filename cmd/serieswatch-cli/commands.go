package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
)

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Check every due tracked series now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			start := time.Now()
			if err := app.Scheduler.RunOnce(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sweep finished in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <trackedID>",
		Short: "Check one tracked series for new releases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackedID, err := parseID("tracked series id", args[0])
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			releases, err := app.Tracker.ManualCheck(cmd.Context(), trackedID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d new release(s)\n", len(releases))
			if len(releases) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), releasesTable(releases))
			}
			return nil
		},
	}
}

func newFollowCommand(ctx *commandContext) *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "follow <userID> <seriesID>",
		Short: "Follow a library series for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			seriesID, err := parseID("series id", args[1])
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			ts, err := app.Tracker.Follow(cmd.Context(), userID, seriesID, region, false)
			if err != nil {
				return err
			}
			app.Tracker.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "Following series %d as tracked series %d (region %s)\n", ts.SeriesID, ts.ID, ts.Region)
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Catalog region (defaults to catalog.region)")
	return cmd
}

func newUnfollowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <userID> <seriesID>",
		Short: "Stop following a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			seriesID, err := parseID("series id", args[1])
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			removed, err := app.Tracker.Unfollow(cmd.Context(), userID, seriesID)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("user %d does not follow series %d", userID, seriesID)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Unfollowed")
			return nil
		},
	}
}

func newTrackedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tracked <userID>",
		Short: "List the series a user follows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			tracked, err := app.Tracker.ListTracked(cmd.Context(), userID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tracked))
			for _, ts := range tracked {
				external := "-"
				if ts.HasExternalID() {
					external = *ts.ExternalSeriesID
				}
				checked := "never"
				if ts.LastCheckedAt != nil {
					checked = ts.LastCheckedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{strconv.FormatInt(ts.ID, 10), ts.SeriesTitle, ts.Region, external, checked})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Series", "Region", "Catalog ID", "Last Checked"},
				rows,
				1,
			))
			return nil
		},
	}
}

func newReleasesCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "releases <userID>",
		Short: "List a user's new releases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			releases, err := app.Tracker.ListReleases(cmd.Context(), userID, all)
			if err != nil {
				return err
			}
			if len(releases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No releases")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), releasesTable(releases))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include dismissed releases")
	return cmd
}

func newRegionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List supported catalog regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := catalog.Regions()
			rows := make([][]string, 0, len(codes))
			for _, code := range codes {
				domain, _ := catalog.Domain(code)
				rows = append(rows, []string{code, domain})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Region", "Domain"}, rows))
			return nil
		},
	}
}

func releasesTable(releases []*models.NewRelease) string {
	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		released := ""
		if r.ReleaseDate != nil {
			released = r.ReleaseDate.Format(time.DateOnly)
		}
		dismissed := ""
		if r.Dismissed {
			dismissed = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10), r.Sequence, r.Title, r.Author, r.ExternalID, released, dismissed,
		})
	}
	return renderTable(
		[]string{"ID", "#", "Title", "Author", "ASIN", "Released", "Dismissed"},
		rows,
		1, 2,
	)
}
