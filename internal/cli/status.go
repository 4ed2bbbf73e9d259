package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Showrunner/internal/repo"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// NewStatusCmd создаёт команду status — вывод записи ledger по id
// заявки. Быстрая проверка исхода бронирования без доступа к БД
// напрямую.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status REQUEST_ID",
		Short: "Show the booking ledger entry for a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0])
		},
	}
}

func runStatus(requestID string) error {
	telemetry.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	entry, err := repo.NewLedgerRepo(pool).GetByID(ctx, requestID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("request %s has no ledger entry", requestID)
	}
	if err != nil {
		return fmt.Errorf("get ledger entry: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Request ID:\t%s\n", entry.RequestID)
	fmt.Fprintf(w, "Property ID:\t%s\n", entry.PropertyID)
	fmt.Fprintf(w, "Status:\t%s\n", entry.BookingStatus)
	fmt.Fprintf(w, "Auto-booked:\t%t\n", entry.AutoBooked)
	if entry.BookingID != "" {
		fmt.Fprintf(w, "Booking ID:\t%s\n", entry.BookingID)
	}
	if entry.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", entry.Error)
	}
	fmt.Fprintf(w, "Admitted:\t%s\n", entry.AdmittedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:\t%s\n", entry.UpdatedAt.Format(time.RFC3339))
	return w.Flush()
}
