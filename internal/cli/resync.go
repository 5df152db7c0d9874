package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	"github.com/noah-isme/kiosk-attendance-api/internal/service"
	"github.com/noah-isme/kiosk-attendance-api/pkg/database"
	"github.com/noah-isme/kiosk-attendance-api/pkg/sheets"
)

// NewResyncCommand creates the resync command.
func NewResyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild the spreadsheet mirror from the attendance ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := opts.setup()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			client, err := sheets.New(cmd.Context(), cfg.Mirror)
			if err != nil {
				return fmt.Errorf("init spreadsheet mirror: %w", err)
			}

			mirror := service.NewMirrorService(repository.NewAttendanceRepository(db), client, cfg.Attendance.Location, nil, logr)
			rows, err := mirror.Resync(cmd.Context())
			if err != nil {
				return err
			}
			logr.Debug("resync finished", zap.Int("rows", rows))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "mirrored %d rows\n", rows)
			return err
		},
	}
}
