package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	incidentsDBPath string
	incidentsStatus string
)

// incidentsCmd represents the incidents command
var incidentsCmd = &cobra.Command{
	Use:   "incidents <userID>",
	Short: "List a user's recorded incidents",
	Long: `List the incidents recorded for a user, newest first, optionally
filtered to one or more statuses.

Example:
  triage incidents user001
  triage incidents user001 --status Open
  triage incidents user001 --status "Resolved,Closed" --db ./support.db`,
	Args: cobra.ExactArgs(1),
	RunE: runIncidents,
}

func init() {
	rootCmd.AddCommand(incidentsCmd)

	incidentsCmd.Flags().StringVar(&incidentsDBPath, "db", "", "incident database path (default: triage.db)")
	incidentsCmd.Flags().StringVar(&incidentsStatus, "status", "", "comma-separated status filter (Open, In Progress, Resolved, Closed)")
}

func runIncidents(cmd *cobra.Command, args []string) error {
	userID := args[0]

	cfg := model.DefaultConfig()
	if path := viper.GetString("store.path"); path != "" {
		cfg.Store.Path = path
	}
	if incidentsDBPath != "" {
		cfg.Store.Path = incidentsDBPath
	}

	var statuses []string
	for _, raw := range strings.Split(incidentsStatus, ",") {
		status := strings.TrimSpace(raw)
		if status == "" {
			continue
		}
		if !model.ValidStatus(status) {
			return fmt.Errorf("invalid status %q (valid: %s)", status, strings.Join(model.Statuses(), ", "))
		}
		statuses = append(statuses, status)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	var incidents []model.Incident
	if len(statuses) > 0 {
		incidents, err = st.IncidentsForUserByStatus(ctx, userID, statuses...)
	} else {
		incidents, err = st.IncidentsForUser(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("list incidents: %w", err)
	}

	if len(incidents) == 0 {
		fmt.Printf("No incidents for %s\n", userID)
		return nil
	}

	for _, inc := range incidents {
		fmt.Printf("%-10s  L%d  %-11s  %-9s  %s\n",
			inc.ID, inc.Level, inc.Status, inc.Category, inc.Description)
	}
	fmt.Printf("\n%d incident(s)\n", len(incidents))
	return nil
}
