// Showrunner — воркер автоматического бронирования показов недвижимости.
//
// Использование:
//
//	showrunner <command> [flags]
//
// Команды:
//
//	worker   Запуск воркера (основной режим)
//	sweep    Один запуск cancellation sweep
//	enqueue  Публикация события showing.requested
//	status   Запись ledger по id заявки
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Showrunner/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "showrunner",
		Short:         "Showrunner — showing booking worker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		cli.NewWorkerCmd(),
		cli.NewSweepCmd(),
		cli.NewEnqueueCmd(),
		cli.NewStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
